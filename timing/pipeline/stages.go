package pipeline

import (
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/memaccess"
	"github.com/sarchlab/mipsim/timing/cache"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch reads the instruction at the given PC.
func (s *FetchStage) Fetch(pc uint32) FSToDS {
	return FSToDS{
		Valid: true,
		Inst:  s.memory.ReadWord(pc),
		PC:    pc,
	}
}

// DecodeStage handles instruction decode, register read, forwarding and
// branch resolution.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
	hazard  *HazardUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, hazard *HazardUnit) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
		hazard:  hazard,
	}
}

// DecodeInputs are the signals decode sees besides its own register.
type DecodeInputs struct {
	ES ESToDS
	MS MSToDS

	// OlderInFlight is set while execute or memory holds an instruction.
	OlderInFlight bool
	// SyscallInExecute is set while a SYSCALL sits in execute. Its results
	// are written straight to the register file by the memory stage, so
	// nothing younger may read registers until it has passed.
	SyscallInExecute bool
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Out    DSToES
	Branch BranchBus

	// LoadUse is set when the stall is a load-use hazard.
	LoadUse bool
	// Forwards counts operands taken from a forwarding bus.
	Forwards int
	// IsControl is set for a branch or jump that issued this cycle.
	IsControl bool
	// Fault is a reserved instruction ready to be raised.
	Fault error
}

// Decode decodes the instruction in in and reads its operands.
func (s *DecodeStage) Decode(in FSToDS, inputs DecodeInputs) DecodeResult {
	var result DecodeResult
	if !in.Valid {
		return result
	}

	inst := s.decoder.Decode(in.Inst)

	// A reserved instruction faults only once everything older has retired.
	if inst.Op == insts.OpUnknown {
		if inputs.OlderInFlight {
			result.Branch.Stall = true
			return result
		}
		result.Fault = fmt.Errorf("%w 0x%08x", emu.ErrReservedInstruction, in.Inst)
		return result
	}

	c := inst.Controls()

	if inputs.SyscallInExecute {
		result.Branch.Stall = true
		return result
	}

	if s.hazard.LoadUse(inputs.ES, inst.Rs, inst.Rt, c.UsesRs, c.UsesRt) {
		result.Branch.Stall = true
		result.LoadUse = true
		return result
	}

	rs, rt := s.readOperands(inst, c, inputs, &result)

	if c.IsControl {
		result.IsControl = true
		if emu.BranchTaken(inst.Op, rs, rt) {
			result.Branch.Taken = true
			result.Branch.Target = emu.ControlTarget(inst, in.PC, rs)
		}
	}

	result.Out = DSToES{
		Valid:   true,
		Ctrl:    c,
		Rs:      inst.Rs,
		Rt:      inst.Rt,
		Imm:     inst.Imm,
		RsValue: rs,
		RtValue: rt,
		PC:      in.PC,
	}

	return result
}

func (s *DecodeStage) readOperands(
	inst *insts.Instruction,
	c insts.Controls,
	inputs DecodeInputs,
	result *DecodeResult,
) (uint32, uint32) {
	rs := s.regFile.ReadReg(inst.Rs)
	rt := s.regFile.ReadReg(inst.Rt)

	var src ForwardSource
	if c.UsesRs {
		rs, src = s.hazard.Forward(inst.Rs, rs, inputs.ES, inputs.MS)
		if src != ForwardNone {
			result.Forwards++
		}
	}

	if c.UsesRt {
		rt, src = s.hazard.Forward(inst.Rt, rt, inputs.ES, inputs.MS)
		if src != ForwardNone {
			result.Forwards++
		}
	}

	return rs, rt
}

// ExecuteStage handles ALU operations and address calculation.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU()}
}

// Execute runs the ALU for the instruction in in. It returns the register
// for the memory stage and the forwarding bus to decode.
func (s *ExecuteStage) Execute(in DSToES) (ESToMS, ESToDS, error) {
	if !in.Valid {
		return ESToMS{}, ESToDS{}, nil
	}

	c := in.Ctrl
	src1, src2 := s.alu.Operands(c, in.PC, in.RsValue, in.RtValue, in.Imm)
	result := s.alu.Compute(c.ALUOp, src1, src2)

	if c.OverflowEn && s.alu.Overflows(c.ALUOp, src1, src2, result) {
		return ESToMS{}, ESToDS{}, fmt.Errorf("%w: 0x%08x op 0x%08x", emu.ErrIntegerOverflow, src1, src2)
	}

	byteEn, err := s.byteEnables(c, result)
	if err != nil {
		return ESToMS{}, ESToDS{}, err
	}

	var dest uint8
	if c.GRWE {
		dest = c.Dest
	}

	out := ESToMS{
		Valid:      true,
		MemKind:    c.MemKind,
		ResFromMem: c.ResFromMem,
		MemWE:      c.MemWE,
		Syscall:    c.IsSyscall,
		Dest:       dest,
		ByteEn:     byteEn,
		RtValue:    in.RtValue,
		ALUResult:  result,
		PC:         in.PC,
	}

	fwd := ESToDS{
		LoadOp: c.ResFromMem,
		Dest:   dest,
		Result: result,
	}

	return out, fwd, nil
}

// byteEnables returns the lanes a memory access touches. Misaligned accesses
// fault here, before any memory state changes.
func (s *ExecuteStage) byteEnables(c insts.Controls, addr uint32) (memaccess.Lanes, error) {
	switch {
	case c.ResFromMem:
		kind, err := memaccess.ParseLoadKind(c.MemKind)
		if err != nil {
			return 0, err
		}
		return memaccess.LoadLanes(kind, addr)
	case c.MemWE:
		kind, err := memaccess.ParseStoreKind(c.MemKind)
		if err != nil {
			return 0, err
		}
		return memaccess.StoreLanes(kind, addr)
	default:
		return 0, nil
	}
}

// MemoryStage performs loads, stores and syscalls.
type MemoryStage struct {
	memory         *emu.Memory
	dcache         *cache.Cache
	syscallHandler emu.SyscallHandler
}

// NewMemoryStage creates a new memory stage. dcache may be nil.
func NewMemoryStage(memory *emu.Memory, dcache *cache.Cache, handler emu.SyscallHandler) *MemoryStage {
	return &MemoryStage{
		memory:         memory,
		dcache:         dcache,
		syscallHandler: handler,
	}
}

// MemoryResult holds the result of the memory stage.
type MemoryResult struct {
	Out     MSToWS
	Forward MSToDS

	// Exited is set when a syscall terminated the program.
	Exited   bool
	ExitCode int64
}

// Access performs the memory operation of the instruction in in.
func (s *MemoryStage) Access(in ESToMS) (MemoryResult, error) {
	var result MemoryResult
	if !in.Valid {
		return result, nil
	}

	final := in.ALUResult

	switch {
	case in.Syscall:
		// The handler works on backing memory directly.
		if s.dcache != nil {
			s.dcache.Flush()
		}
		sr := s.syscallHandler.Handle()
		result.Exited = sr.Exited
		result.ExitCode = sr.ExitCode

	case in.ResFromMem:
		value, err := s.load(in)
		if err != nil {
			return result, err
		}
		final = value

	case in.MemWE:
		if err := s.store(in); err != nil {
			return result, err
		}
	}

	result.Out = MSToWS{
		Valid:       true,
		GRWE:        in.Dest != 0,
		Dest:        in.Dest,
		FinalResult: final,
		PC:          in.PC,
	}
	result.Forward = MSToDS{Dest: in.Dest, Result: final}

	return result, nil
}

func (s *MemoryStage) load(in ESToMS) (uint32, error) {
	kind, err := memaccess.ParseLoadKind(in.MemKind)
	if err != nil {
		return 0, err
	}

	value, err := memaccess.DecodeLoad(kind, in.ALUResult, s.readWord(in.ALUResult))
	if err != nil {
		return 0, err
	}

	// LWL and LWR merge into the old rt value carried on the bus.
	return memaccess.MergeLoad(kind, in.ALUResult, value, in.RtValue)
}

func (s *MemoryStage) store(in ESToMS) error {
	kind, err := memaccess.ParseStoreKind(in.MemKind)
	if err != nil {
		return err
	}

	// A full-word store needs no read of the old word.
	var raw uint32
	if in.ByteEn != memaccess.AllLanes {
		raw = s.readWord(in.ALUResult)
	}

	word, err := memaccess.EncodeStore(kind, in.ALUResult, raw, in.RtValue)
	if err != nil {
		return err
	}

	s.writeWord(in.ALUResult, word)
	return nil
}

func (s *MemoryStage) readWord(addr uint32) uint32 {
	if s.dcache != nil {
		return s.dcache.ReadWord(addr).Data
	}
	return s.memory.ReadWord(addr)
}

func (s *MemoryStage) writeWord(addr, value uint32) {
	if s.dcache != nil {
		s.dcache.WriteWord(addr, value)
		return
	}
	s.memory.WriteWord(addr, value)
}

// WritebackStage handles writing results back to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback drives the register file write port for the instruction in in.
func (s *WritebackStage) Writeback(in MSToWS) WSToRF {
	if !in.Valid {
		return WSToRF{}
	}
	return WSToRF{
		WE:   in.GRWE,
		Addr: in.Dest,
		Data: in.FinalResult,
	}
}

// Commit performs the register file write.
func (s *WritebackStage) Commit(port WSToRF) {
	if port.WE {
		s.regFile.WriteReg(port.Addr, port.Data)
	}
}
