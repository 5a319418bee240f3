// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline as an akita ticking component, so a core advances
// one pipeline cycle per tick of the simulation engine.
package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// DefaultFreq is the core clock used when none is given.
const DefaultFreq = 1 * sim.GHz

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// CPI is cycles per retired instruction.
	CPI float64
	// SimTime is the engine time when the core stopped.
	SimTime sim.VTimeInSec
}

// Core represents a cycle-accurate CPU core model.
type Core struct {
	*sim.TickingComponent

	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	engine sim.Engine
}

// NewCore creates a core named name that ticks on engine at freq.
func NewCore(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	regFile *emu.RegFile,
	memory *emu.Memory,
	opts ...pipeline.PipelineOption,
) (*Core, error) {
	pipe, err := pipeline.NewPipeline(regFile, memory, opts...)
	if err != nil {
		return nil, err
	}

	c := &Core{
		Pipeline: pipe,
		engine:   engine,
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	return c, nil
}

// NewStandaloneCore creates a core on its own serial engine at DefaultFreq.
func NewStandaloneCore(
	regFile *emu.RegFile,
	memory *emu.Memory,
	opts ...pipeline.PipelineOption,
) (*Core, error) {
	return NewCore("Core", sim.NewSerialEngine(), DefaultFreq, regFile, memory, opts...)
}

// Boot sets the fetch address and schedules the first tick.
func (c *Core) Boot(pc uint32) {
	c.Pipeline.SetPC(pc)
	c.TickLater()
}

// Tick executes one pipeline cycle. It reports progress until the pipeline
// halts, which lets the engine drain.
func (c *Core) Tick() bool {
	if c.Pipeline.Halted() {
		return false
	}

	c.Pipeline.Tick()

	return !c.Pipeline.Halted()
}

// Run boots the core at pc and runs the engine until the core halts.
// Returns the exit code.
func (c *Core) Run(pc uint32) (int64, error) {
	c.Boot(pc)

	if err := c.engine.Run(); err != nil {
		return -1, err
	}

	return c.Pipeline.ExitCode(), c.Pipeline.Err()
}

// Halted returns true if the core has halted.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode returns the exit code if the core has halted.
func (c *Core) ExitCode() int64 {
	return c.Pipeline.ExitCode()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	ps := c.Pipeline.Stats()
	return Stats{
		Cycles:       ps.Cycles,
		Instructions: ps.Instructions,
		Stalls:       ps.Stalls,
		CPI:          ps.CPI(),
		SimTime:      c.engine.CurrentTime(),
	}
}

// Reset clears all pipeline state.
func (c *Core) Reset() {
	c.Pipeline.Reset()
}
