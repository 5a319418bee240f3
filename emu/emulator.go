package emu

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/memaccess"
)

// Errors that stop execution.
var (
	ErrReservedInstruction = errors.New("reserved instruction")
	ErrIntegerOverflow     = errors.New("integer overflow")
	ErrMaxInstructions     = errors.New("max instructions reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes MIPS32 instructions functionally. Branches and jumps
// take effect after their delay slot.
type Emulator struct {
	regFile        *RegFile
	memory         *Memory
	decoder        *insts.Decoder
	alu            *ALU
	syscallHandler SyscallHandler
	customHandler  bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger logrus.FieldLogger

	// nextPC is the address executed after the instruction at PC.
	nextPC uint32

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdin sets the reader served by the read syscall.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) {
		e.stdin = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
		e.customHandler = true
	}
}

// WithStackPointer sets the initial $sp value.
func WithStackPointer(sp uint32) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.WriteReg(RegSP, sp)
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithLogger sets the logger used for trace output.
func WithLogger(logger logrus.FieldLogger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// NewEmulator creates a new MIPS32 emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		alu:     NewALU(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		nextPC:  4,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.logger = l
	}

	if e.syscallHandler == nil {
		e.syscallHandler = e.defaultHandler()
	}

	return e
}

func (e *Emulator) defaultHandler() *DefaultSyscallHandler {
	h := NewDefaultSyscallHandler(e.regFile, e.memory, e.stdout, e.stderr)
	if e.stdin != nil {
		h.SetStdin(e.stdin)
	}
	return h
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram loads a program into memory and sets the entry point.
// The program can be either a []byte or a *Memory.
func (e *Emulator) LoadProgram(entry uint32, program interface{}) {
	switch p := program.(type) {
	case []byte:
		e.memory.LoadBytes(entry, p)
	case *Memory:
		e.memory = p
		if !e.customHandler {
			e.syscallHandler = e.defaultHandler()
		}
	}
	e.regFile.PC = entry
	e.nextPC = entry + 4
}

// Reset resets the emulator to its initial state.
func (e *Emulator) Reset() {
	e.regFile = &RegFile{}
	e.memory = NewMemory()
	e.nextPC = 4
	e.instructionCount = 0

	if !e.customHandler {
		e.syscallHandler = e.defaultHandler()
	}
}

// Step executes a single instruction.
// Returns a StepResult indicating whether execution should continue.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	pc := e.regFile.PC
	inst := e.decoder.Decode(e.memory.ReadWord(pc))

	target := e.nextPC + 4
	result := e.execute(inst, pc, &target)
	if result.Err != nil {
		return result
	}

	e.regFile.PC = e.nextPC
	e.nextPC = target
	e.instructionCount++

	return result
}

// Run executes instructions until the program exits or an error occurs.
// Returns the exit code (-1 if error).
func (e *Emulator) Run() int64 {
	for {
		result := e.Step()
		if result.Exited {
			return result.ExitCode
		}
		if result.Err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Emulation error: %v\n", result.Err)
			return -1
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction, pc uint32, target *uint32) StepResult {
	if inst.Op == insts.OpUnknown {
		return StepResult{
			Err: fmt.Errorf("%w 0x%08x at PC=0x%08x", ErrReservedInstruction, inst.Word, pc),
		}
	}

	c := inst.Controls()
	rs := e.regFile.ReadReg(inst.Rs)
	rt := e.regFile.ReadReg(inst.Rt)

	if c.IsSyscall {
		return e.executeSyscall(pc)
	}

	if c.IsControl && BranchTaken(inst.Op, rs, rt) {
		*target = ControlTarget(inst, pc, rs)
	}

	src1, src2 := e.alu.Operands(c, pc, rs, rt, inst.Imm)
	result := e.alu.Compute(c.ALUOp, src1, src2)
	if c.OverflowEn && e.alu.Overflows(c.ALUOp, src1, src2, result) {
		return StepResult{
			Err: fmt.Errorf("%w: %s at PC=0x%08x", ErrIntegerOverflow, inst, pc),
		}
	}

	var err error
	switch {
	case c.ResFromMem:
		result, err = e.load(inst, result, rt)
	case c.MemWE:
		err = e.store(inst, result, rt)
	}
	if err != nil {
		return StepResult{Err: fmt.Errorf("%w at PC=0x%08x", err, pc)}
	}

	if c.GRWE {
		e.regFile.WriteReg(c.Dest, result)
	}

	return StepResult{}
}

func (e *Emulator) load(inst *insts.Instruction, addr, prior uint32) (uint32, error) {
	kind, _ := inst.LoadKind()

	value, err := memaccess.DecodeLoad(kind, addr, e.memory.ReadWord(addr))
	if err != nil {
		return 0, err
	}

	return memaccess.MergeLoad(kind, addr, value, prior)
}

func (e *Emulator) store(inst *insts.Instruction, addr, value uint32) error {
	kind, _ := inst.StoreKind()

	word, err := memaccess.EncodeStore(kind, addr, e.memory.ReadWord(addr), value)
	if err != nil {
		return err
	}

	e.memory.WriteWord(addr, word)
	return nil
}

func (e *Emulator) executeSyscall(pc uint32) StepResult {
	num := e.regFile.ReadReg(RegV0)
	result := e.syscallHandler.Handle()

	e.logger.WithFields(logrus.Fields{
		"pc":      fmt.Sprintf("0x%08x", pc),
		"syscall": num,
		"exited":  result.Exited,
	}).Debug("syscall")

	return StepResult{
		Exited:   result.Exited,
		ExitCode: result.ExitCode,
	}
}
