package insts

import "fmt"

// Op represents a MIPS32 operation.
type Op uint16

// MIPS32 operations.
const (
	OpUnknown Op = iota

	// R-type ALU.
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpSLT
	OpSLTU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV

	// R-type control.
	OpJR
	OpJALR
	OpSYSCALL

	// I-type ALU.
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI

	// Branches and jumps.
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpBLTZ
	OpBGEZ
	OpJ
	OpJAL

	// Loads.
	OpLB
	OpLBU
	OpLH
	OpLHU
	OpLW
	OpLWL
	OpLWR

	// Stores.
	OpSB
	OpSH
	OpSW
	OpSWL
	OpSWR
)

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpADD:     "ADD", OpADDU: "ADDU", OpSUB: "SUB", OpSUBU: "SUBU",
	OpSLT: "SLT", OpSLTU: "SLTU", OpAND: "AND", OpOR: "OR", OpXOR: "XOR",
	OpNOR: "NOR", OpSLL: "SLL", OpSRL: "SRL", OpSRA: "SRA", OpSLLV: "SLLV",
	OpSRLV: "SRLV", OpSRAV: "SRAV", OpJR: "JR", OpJALR: "JALR",
	OpSYSCALL: "SYSCALL", OpADDI: "ADDI", OpADDIU: "ADDIU", OpSLTI: "SLTI",
	OpSLTIU: "SLTIU", OpANDI: "ANDI", OpORI: "ORI", OpXORI: "XORI",
	OpLUI: "LUI", OpBEQ: "BEQ", OpBNE: "BNE", OpBLEZ: "BLEZ", OpBGTZ: "BGTZ",
	OpBLTZ: "BLTZ", OpBGEZ: "BGEZ", OpJ: "J", OpJAL: "JAL", OpLB: "LB",
	OpLBU: "LBU", OpLH: "LH", OpLHU: "LHU", OpLW: "LW", OpLWL: "LWL",
	OpLWR: "LWR", OpSB: "SB", OpSH: "SH", OpSW: "SW", OpSWL: "SWL",
	OpSWR: "SWR",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint16(o))
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // op | rs | rt | rd | shamt | funct
	FormatI              // op | rs | rt | imm16
	FormatJ              // op | target26
)

// Instruction represents a decoded MIPS32 instruction.
type Instruction struct {
	Op     Op
	Format Format
	Word   uint32

	Rs    uint8
	Rt    uint8
	Rd    uint8
	Shamt uint8
	Funct uint8

	Imm    uint16 // I-type immediate
	Target uint32 // J-type 26-bit word index
}

// SignExtImm returns the immediate sign-extended to 32 bits.
func (i *Instruction) SignExtImm() uint32 {
	return uint32(int32(int16(i.Imm)))
}

// ZeroExtImm returns the immediate zero-extended to 32 bits.
func (i *Instruction) ZeroExtImm() uint32 {
	return uint32(i.Imm)
}

// BranchTarget returns the target of a PC-relative branch located at pc.
func (i *Instruction) BranchTarget(pc uint32) uint32 {
	return pc + 4 + i.SignExtImm()<<2
}

// JumpTarget returns the target of a J/JAL located at pc.
func (i *Instruction) JumpTarget(pc uint32) uint32 {
	return (pc+4)&0xF0000000 | i.Target<<2
}

// IsLoad reports whether the instruction reads memory.
func (i *Instruction) IsLoad() bool {
	return i.Op >= OpLB && i.Op <= OpLWR
}

// IsStore reports whether the instruction writes memory.
func (i *Instruction) IsStore() bool {
	return i.Op >= OpSB && i.Op <= OpSWR
}

// IsControl reports whether the instruction is a branch or jump, and so
// has a delay slot.
func (i *Instruction) IsControl() bool {
	switch i.Op {
	case OpBEQ, OpBNE, OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ, OpJ, OpJAL, OpJR, OpJALR:
		return true
	default:
		return false
	}
}

func (i *Instruction) String() string {
	switch i.Format {
	case FormatR:
		return fmt.Sprintf("%s rd=%d rs=%d rt=%d sa=%d", i.Op, i.Rd, i.Rs, i.Rt, i.Shamt)
	case FormatI:
		return fmt.Sprintf("%s rt=%d rs=%d imm=0x%04x", i.Op, i.Rt, i.Rs, i.Imm)
	case FormatJ:
		return fmt.Sprintf("%s target=0x%07x", i.Op, i.Target)
	default:
		return fmt.Sprintf("%s 0x%08x", i.Op, i.Word)
	}
}
