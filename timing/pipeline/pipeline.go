package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/bus"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
)

// ErrCycleLimit is reported when the pipeline runs past its cycle budget.
var ErrCycleLimit = errors.New("cycle limit reached")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of cycles decode held its instruction.
	Stalls uint64
	// LoadUseStalls is the subset of Stalls caused by load-use hazards.
	LoadUseStalls uint64
	// Forwards is the number of operands taken from a forwarding bus.
	Forwards uint64
	// Branches is the number of branches and jumps resolved.
	Branches uint64
	// BranchesTaken is the number of those that redirected fetch.
	BranchesTaken uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithRegistry sets the bus layouts. The default registry is used otherwise.
func WithRegistry(r *bus.Registry) PipelineOption {
	return func(p *Pipeline) {
		p.registry = r
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) {
		p.syscallHandler = handler
	}
}

// WithDCache enables the L1 data cache with the given configuration.
func WithDCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dcache = cache.New(config, cache.NewMemoryBacking(p.memory))
	}
}

// WithLogger sets the logger for halts, faults and cycle traces.
func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMaxCycles stops the pipeline with ErrCycleLimit after n cycles.
// A value of 0 means no limit.
func WithMaxCycles(n uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = n
	}
}

// Pipeline implements a 5-stage pipelined MIPS core.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
// Each pipeline register and side bus is packed into its fixed-width
// payload and unpacked by the consumer, so a stage sees only its bus bits.
type Pipeline struct {
	// Pipeline registers
	fsToDS latch
	dsToES latch
	esToMS latch
	msToWS latch

	// Last payload driven on every bus, for tracing.
	driven map[bus.Name]bus.Payload

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage
	hazardUnit     *HazardUnit

	registry *bus.Registry
	layouts  layouts

	regFile        *emu.RegFile
	memory         *emu.Memory
	dcache         *cache.Cache
	syscallHandler emu.SyscallHandler
	logger         logrus.FieldLogger
	traceEnabled   bool

	// pc is the fetch address.
	pc uint32

	maxCycles uint64
	stats     Statistics

	halted   bool
	exitCode int64
	err      error
}

// NewPipeline creates a new 5-stage pipeline. It fails if a bus has no
// layout or a layout lacks a field the stages use.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{
		regFile:    regFile,
		memory:     memory,
		hazardUnit: NewHazardUnit(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.registry == nil {
		p.registry = bus.NewDefaultRegistry()
	}

	ls, err := resolveLayouts(p.registry)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.layouts = ls

	if p.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.logger = l
	}
	p.traceEnabled = traceEnabled(p.logger)

	if p.syscallHandler == nil {
		p.syscallHandler = emu.NewDefaultSyscallHandler(regFile, memory, io.Discard, io.Discard)
	}

	p.fetchStage = NewFetchStage(memory)
	p.decodeStage = NewDecodeStage(regFile, p.hazardUnit)
	p.executeStage = NewExecuteStage()
	p.memoryStage = NewMemoryStage(memory, p.dcache, p.syscallHandler)
	p.writebackStage = NewWritebackStage(regFile)

	p.clearLatches()

	return p, nil
}

func (p *Pipeline) clearLatches() {
	p.fsToDS = latch{payload: bus.NewPayload(p.layouts[bus.FSToDS])}
	p.dsToES = latch{payload: bus.NewPayload(p.layouts[bus.DSToES])}
	p.esToMS = latch{payload: bus.NewPayload(p.layouts[bus.ESToMS])}
	p.msToWS = latch{payload: bus.NewPayload(p.layouts[bus.MSToWS])}

	p.driven = make(map[bus.Name]bus.Payload, len(p.layouts))
	for name, l := range p.layouts {
		p.driven[name] = bus.NewPayload(l)
	}
}

// PC returns the current fetch address.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the fetch address.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
	p.regFile.PC = pc
}

// Registry returns the bus registry the pipeline was built with.
func (p *Pipeline) Registry() *bus.Registry {
	return p.registry
}

// Bus returns the payload most recently driven on a bus.
func (p *Pipeline) Bus(name bus.Name) bus.Payload {
	return p.driven[name]
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the exit code if the pipeline has halted, or -1 after a
// fault.
func (p *Pipeline) ExitCode() int64 {
	return p.exitCode
}

// Err returns the fault that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// UseDCache reports whether the data cache is enabled.
func (p *Pipeline) UseDCache() bool {
	return p.dcache != nil
}

// DCacheStats returns data cache statistics.
func (p *Pipeline) DCacheStats() cache.Statistics {
	if p.dcache == nil {
		return cache.Statistics{}
	}
	return p.dcache.Stats()
}

// Run executes the pipeline until it halts.
// Returns the exit code.
func (p *Pipeline) Run() int64 {
	for !p.halted {
		p.Tick()
	}
	return p.exitCode
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// drive packs v onto a side bus and returns the payload the consumer sees.
func (p *Pipeline) drive(name bus.Name, v interface{ Pack(*bus.Layout) bus.Payload }) bus.Payload {
	payload := v.Pack(p.layouts[name])
	p.driven[name] = payload
	return payload
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF) on the values
// latched at the end of the previous cycle, then the new values are
// latched. Write-back commits first, so decode reads registers written this
// cycle. Decode takes operands from ES_TO_DS before MS_TO_DS and stalls one
// cycle on a load-use hazard. Branches resolve in decode and redirect fetch
// after the delay slot, which is fetched in the same cycle.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	if p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles {
		p.fault(fmt.Errorf("%w (%d)", ErrCycleLimit, p.maxCycles), p.pc)
		return
	}

	p.stats.Cycles++

	fs := UnpackFSToDS(p.fsToDS.payload)
	fs.Valid = p.fsToDS.valid
	ds := UnpackDSToES(p.dsToES.payload)
	ds.Valid = p.dsToES.valid
	es := UnpackESToMS(p.esToMS.payload)
	es.Valid = p.esToMS.valid
	ms := UnpackMSToWS(p.msToWS.payload)
	ms.Valid = p.msToWS.valid

	// Stage 5: Writeback
	p.retire(ms)

	// Stage 4: Memory
	memResult, err := p.memoryStage.Access(es)
	if err != nil {
		p.fault(err, es.PC)
		return
	}
	if memResult.Exited {
		p.stats.Instructions++
		p.halt(memResult.ExitCode, es.PC)
		return
	}
	msFwd := UnpackMSToDS(p.drive(bus.MSToDS, memResult.Forward))

	// Stage 3: Execute
	exOut, exFwd, err := p.executeStage.Execute(ds)
	if err != nil {
		// Everything older than the faulting instruction retires.
		p.retire(memResult.Out)
		p.fault(err, ds.PC)
		return
	}
	esFwd := UnpackESToDS(p.drive(bus.ESToDS, exFwd))

	// Stage 2: Decode
	dec := p.decodeStage.Decode(fs, DecodeInputs{
		ES:               esFwd,
		MS:               msFwd,
		OlderInFlight:    ds.Valid || es.Valid,
		SyscallInExecute: ds.Valid && ds.Ctrl.IsSyscall,
	})
	if dec.Fault != nil {
		p.fault(dec.Fault, fs.PC)
		return
	}
	br := UnpackBranchBus(p.drive(bus.BrBus, dec.Branch))

	// Stage 1: Fetch
	nextFS := p.fsToDS
	if br.Stall {
		p.stats.Stalls++
		if dec.LoadUse {
			p.stats.LoadUseStalls++
		}
	} else {
		fetched := p.fetchStage.Fetch(p.pc)
		nextFS = latch{valid: true, payload: fetched.Pack(p.layouts[bus.FSToDS])}

		if br.Taken {
			p.pc = br.Target
		} else {
			p.pc += 4
		}

		p.stats.Forwards += uint64(dec.Forwards)
		if dec.IsControl {
			p.stats.Branches++
			if br.Taken {
				p.stats.BranchesTaken++
			}
		}
	}

	// Latch
	p.fsToDS = nextFS
	p.dsToES = latch{valid: dec.Out.Valid, payload: dec.Out.Pack(p.layouts[bus.DSToES])}
	p.esToMS = latch{valid: exOut.Valid, payload: exOut.Pack(p.layouts[bus.ESToMS])}
	p.msToWS = latch{valid: memResult.Out.Valid, payload: memResult.Out.Pack(p.layouts[bus.MSToWS])}
	p.regFile.PC = p.pc

	p.driven[bus.FSToDS] = p.fsToDS.payload
	p.driven[bus.DSToES] = p.dsToES.payload
	p.driven[bus.ESToMS] = p.esToMS.payload
	p.driven[bus.MSToWS] = p.msToWS.payload

	p.trace()
}

// retire runs write-back for in and counts it.
func (p *Pipeline) retire(in MSToWS) {
	port := UnpackWSToRF(p.drive(bus.WSToRF, p.writebackStage.Writeback(in)))
	p.writebackStage.Commit(port)
	if in.Valid {
		p.stats.Instructions++
	}
}

func (p *Pipeline) halt(exitCode int64, pc uint32) {
	p.halted = true
	p.exitCode = exitCode
	if p.dcache != nil {
		p.dcache.Flush()
	}

	p.logger.WithFields(logrus.Fields{
		"pc":        fmt.Sprintf("0x%08x", pc),
		"cycle":     p.stats.Cycles,
		"exit_code": exitCode,
	}).Info("pipeline halted")
}

func (p *Pipeline) fault(err error, pc uint32) {
	p.err = fmt.Errorf("pc 0x%08x: %w", pc, err)
	p.halted = true
	p.exitCode = -1
	if p.dcache != nil {
		p.dcache.Flush()
	}

	p.logger.WithFields(logrus.Fields{
		"pc":    fmt.Sprintf("0x%08x", pc),
		"cycle": p.stats.Cycles,
		"err":   err,
	}).Error("pipeline fault")
}

// traceEnabled reports whether per-cycle traces would be emitted. Unknown
// logger implementations are assumed to want them.
func traceEnabled(logger logrus.FieldLogger) bool {
	switch l := logger.(type) {
	case *logrus.Logger:
		return l.IsLevelEnabled(logrus.TraceLevel)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(logrus.TraceLevel)
	default:
		return true
	}
}

func (p *Pipeline) trace() {
	if !p.traceEnabled {
		return
	}

	fields := logrus.Fields{"cycle": p.stats.Cycles}
	for name, payload := range p.driven {
		fields[string(name)] = payload.String()
	}
	p.logger.WithFields(fields).Trace("cycle")
}

// Reset clears all pipeline state. Registers and memory are left alone.
func (p *Pipeline) Reset() {
	p.clearLatches()
	p.pc = 0
	p.stats = Statistics{}
	p.halted = false
	p.exitCode = 0
	p.err = nil
	if p.dcache != nil {
		p.dcache.Reset()
	}
}
