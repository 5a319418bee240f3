// Package main provides the entry point for mipsim.
// mipsim runs MIPS32 little-endian ELF programs either on the functional
// emulator or on the 5-stage pipeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/bus"
	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// options holds the parsed command line.
type options struct {
	pipeline   bool
	configPath string
	buses      bool
	verbose    bool
	program    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mipsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.BoolVar(&opts.pipeline, "pipeline", false, "Run on the 5-stage pipeline instead of the emulator")
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration JSON file")
	fs.BoolVar(&opts.buses, "buses", false, "Print the bus layout table and exit")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	if opts.buses {
		if err := printBuses(stdout, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(stderr, "Usage: mipsim [options] <program.elf>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		return 1
	}
	opts.program = fs.Arg(0)

	logger := newLogger(stderr, cfg, opts.verbose)

	prog, err := loader.Load(opts.program)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	logger.WithFields(logrus.Fields{
		"program":  opts.program,
		"entry":    fmt.Sprintf("0x%08x", prog.EntryPoint),
		"segments": len(prog.Segments),
	}).Info("program loaded")

	std := stdio{in: stdin, out: stdout, err: stderr}
	if opts.pipeline {
		return int(runPipeline(prog, cfg, std, logger))
	}
	return int(runEmulation(prog, cfg, std, logger))
}

type stdio struct {
	in       io.Reader
	out, err io.Writer
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	level, _ := cfg.Level()
	if verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	return logger
}

// runEmulation runs the program in functional emulation mode.
func runEmulation(prog *loader.Program, cfg *config.Config, std stdio, logger *logrus.Logger) int64 {
	memory := emu.NewMemory()
	prog.LoadInto(memory)

	emulator := emu.NewEmulator(
		emu.WithStdout(std.out),
		emu.WithStderr(std.err),
		emu.WithStackPointer(prog.InitialSP),
		emu.WithMaxInstructions(cfg.MaxCycles),
		emu.WithStdin(std.in),
		emu.WithLogger(logger),
	)
	emulator.LoadProgram(prog.EntryPoint, memory)

	exitCode := emulator.Run()

	logger.WithFields(logrus.Fields{
		"exit_code":    exitCode,
		"instructions": emulator.InstructionCount(),
	}).Info("emulation finished")

	return exitCode
}

// runPipeline runs the program on the pipeline, driven by an akita engine.
func runPipeline(prog *loader.Program, cfg *config.Config, std stdio, logger *logrus.Logger) int64 {
	memory := emu.NewMemory()
	prog.LoadInto(memory)

	regFile := &emu.RegFile{}
	regFile.WriteReg(emu.RegSP, prog.InitialSP)

	handler := emu.NewDefaultSyscallHandler(regFile, memory, std.out, std.err)
	handler.SetStdin(std.in)

	opts, err := cfg.PipelineOptions()
	if err != nil {
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return -1
	}
	opts = append(opts,
		pipeline.WithSyscallHandler(handler),
		pipeline.WithLogger(logger),
	)

	c, err := core.NewStandaloneCore(regFile, memory, opts...)
	if err != nil {
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return -1
	}

	exitCode, err := c.Run(prog.EntryPoint)
	if err != nil {
		fmt.Fprintf(std.err, "Pipeline error: %v\n", err)
	}

	stats := c.Pipeline.Stats()
	fields := logrus.Fields{
		"exit_code":      exitCode,
		"cycles":         stats.Cycles,
		"instructions":   stats.Instructions,
		"cpi":            fmt.Sprintf("%.2f", stats.CPI()),
		"stalls":         stats.Stalls,
		"load_use":       stats.LoadUseStalls,
		"forwards":       stats.Forwards,
		"branches":       stats.Branches,
		"branches_taken": stats.BranchesTaken,
	}
	if c.Pipeline.UseDCache() {
		ds := c.Pipeline.DCacheStats()
		fields["dcache_hit_rate"] = fmt.Sprintf("%.3f", ds.HitRate())
		fields["dcache_writebacks"] = ds.Writebacks
	}
	logger.WithFields(fields).Info("pipeline finished")

	return exitCode
}

// printBuses writes every bus with its fields and bit ranges.
func printBuses(w io.Writer, cfg *config.Config) error {
	r, err := cfg.Registry()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUS\tWIDTH\tFIELD\tBITS")

	for _, name := range bus.Names() {
		l, err := r.Layout(name)
		if err != nil {
			return err
		}

		for i, f := range l.Fields() {
			lo, _ := l.Offset(f.Name)
			busName, width := "", ""
			if i == 0 {
				busName, width = string(name), fmt.Sprint(l.Width())
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t[%d:%d]\n", busName, width, f.Name, lo+f.Width-1, lo)
		}
	}

	return tw.Flush()
}
