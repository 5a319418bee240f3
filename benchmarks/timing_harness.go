// Package benchmarks provides a microbenchmark harness for the pipeline.
package benchmarks

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// ProgramAddr is where every benchmark program is loaded.
const ProgramAddr = uint32(0x1000)

// DataAddr is a scratch data region benchmarks may use.
const DataAddr = uint32(0x10000)

// BenchmarkResult holds the results of a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the pipeline
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of cycles decode held its instruction
	StallCycles uint64 `json:"stall_cycles"`

	// LoadUseStalls is the subset of StallCycles caused by load-use hazards
	LoadUseStalls uint64 `json:"load_use_stalls"`

	// Forwards is the number of operands taken from a forwarding bus
	Forwards uint64 `json:"forwards"`

	// Branches and BranchesTaken count resolved control transfers
	Branches      uint64 `json:"branches"`
	BranchesTaken uint64 `json:"branches_taken"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// ExitCode is the program's exit code on the pipeline
	ExitCode int64 `json:"exit_code"`

	// EmulatorExitCode is the exit code of the same program on the emulator
	EmulatorExitCode int64 `json:"emulator_exit_code"`

	// EmulatorInstructions is the instruction count on the emulator
	EmulatorInstructions uint64 `json:"emulator_instructions"`

	// Err is the pipeline fault, if any
	Err string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the pipeline
	WallTime time.Duration `json:"wall_time_ns"`
}

// Matches reports whether the pipeline agreed with the emulator and the
// expected exit code.
func (r BenchmarkResult) Matches(expected int64) bool {
	return r.Err == "" && r.ExitCode == expected && r.EmulatorExitCode == expected &&
		r.InstructionsRetired == r.EmulatorInstructions
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares memory before the run
	Setup func(memory *emu.Memory)

	// Program is the MIPS machine code to execute
	Program []byte

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache enables data cache simulation
	EnableDCache bool

	// DCache is the cache geometry used when EnableDCache is set
	DCache cache.Config

	// MaxCycles bounds each run. 0 means no limit.
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache: true,
		DCache:       cache.DefaultConfig(),
		MaxCycles:    10_000_000,
		Output:       os.Stdout,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

// runBenchmark executes a single benchmark on the pipeline and on the
// emulator.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	regFile := &emu.RegFile{}
	regFile.WriteReg(emu.RegSP, DataAddr+0x8000)
	memory := emu.NewMemory()
	memory.LoadBytes(ProgramAddr, bench.Program)
	if bench.Setup != nil {
		bench.Setup(memory)
	}

	opts := []pipeline.PipelineOption{pipeline.WithMaxCycles(h.config.MaxCycles)}
	if h.config.EnableDCache {
		opts = append(opts, pipeline.WithDCache(h.config.DCache))
	}

	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	pipe, err := pipeline.NewPipeline(regFile, memory, opts...)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	pipe.SetPC(ProgramAddr)

	start := time.Now()
	result.ExitCode = pipe.Run()
	result.WallTime = time.Since(start)
	if err := pipe.Err(); err != nil {
		result.Err = err.Error()
	}

	stats := pipe.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.LoadUseStalls = stats.LoadUseStalls
	result.Forwards = stats.Forwards
	result.Branches = stats.Branches
	result.BranchesTaken = stats.BranchesTaken

	if pipe.UseDCache() {
		dcStats := pipe.DCacheStats()
		result.DCacheHits = dcStats.Hits
		result.DCacheMisses = dcStats.Misses
	}

	result.EmulatorExitCode, result.EmulatorInstructions = h.emulate(bench)

	return result
}

// emulate runs bench on the functional emulator.
func (h *Harness) emulate(bench Benchmark) (int64, uint64) {
	e := emu.NewEmulator(
		emu.WithStdout(io.Discard),
		emu.WithStderr(io.Discard),
		emu.WithStackPointer(DataAddr+0x8000),
		emu.WithMaxInstructions(h.config.MaxCycles),
	)
	e.LoadProgram(ProgramAddr, bench.Program)
	if bench.Setup != nil {
		bench.Setup(e.Memory())
	}

	return e.Run(), e.InstructionCount()
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "=== mipsim Pipeline Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(w, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(w, "  Exit Code: %d (emulator %d)\n", r.ExitCode, r.EmulatorExitCode)
		if r.Err != "" {
			_, _ = fmt.Fprintf(w, "  Error: %s\n", r.Err)
		}
		_, _ = fmt.Fprintln(w, "  --- Pipeline ---")
		_, _ = fmt.Fprintf(w, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(w, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(w, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(w, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(w, "  Load-Use Stalls:      %d\n", r.LoadUseStalls)
		_, _ = fmt.Fprintf(w, "  Forwards:             %d\n", r.Forwards)
		_, _ = fmt.Fprintf(w, "  Branches (taken):     %d (%d)\n", r.Branches, r.BranchesTaken)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(w, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(w, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(w, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,load_use_stalls,forwards,branches,branches_taken,dcache_hits,dcache_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.LoadUseStalls,
			r.Forwards,
			r.Branches,
			r.BranchesTaken,
			r.DCacheHits,
			r.DCacheMisses,
			r.ExitCode,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}

	_, err = h.config.Output.Write(append(data, '\n'))
	return err
}

// BuildProgram assembles instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	var buf bytes.Buffer
	for _, inst := range instrs {
		_ = binary.Write(&buf, binary.LittleEndian, inst)
	}
	return buf.Bytes()
}
