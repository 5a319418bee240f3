// Command benchmark runs the pipeline microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv         Output results in CSV format (default: human-readable)
//	-json        Output results as JSON
//	-no-dcache   Disable data cache simulation
//	-cpuprofile  Write a CPU profile of the run to a file
//
// Every benchmark also runs on the functional emulator; the command exits
// non-zero if any pipeline run disagrees with it.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/sarchlab/mipsim/benchmarks"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	noDCache := flag.Bool("no-dcache", false, "Disable data cache simulation")
	cpuProfile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	config := benchmarks.DefaultConfig()
	config.EnableDCache = !*noDCache
	config.Output = os.Stdout

	harness := benchmarks.NewHarness(config)
	benches := benchmarks.GetMicrobenchmarks()
	harness.AddBenchmarks(benches)

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		fmt.Println("mipsim Pipeline Benchmark Harness")
		fmt.Println("=================================")
		fmt.Printf("D-Cache: %v\n", config.EnableDCache)
		fmt.Println("")
		harness.PrintResults(results)
	}

	mismatches := 0
	for i, r := range results {
		if !r.Matches(benches[i].ExpectedExit) {
			fmt.Fprintf(os.Stderr, "MISMATCH %s: pipeline exit %d, emulator exit %d, expected %d\n",
				r.Name, r.ExitCode, r.EmulatorExitCode, benches[i].ExpectedExit)
			mismatches++
		}
	}

	if mismatches > 0 {
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}
