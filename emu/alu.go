package emu

import "github.com/sarchlab/mipsim/insts"

// ALU implements the MIPS32 integer datapath shared by the functional
// emulator and the pipeline's execute stage.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Operands selects the two ALU inputs from the decode control signals.
func (a *ALU) Operands(c insts.Controls, pc, rs, rt uint32, imm uint16) (uint32, uint32) {
	src1 := rs
	switch {
	case c.Src1IsSA:
		src1 = uint32(imm>>6) & 0x1F
	case c.Src1IsPC:
		src1 = pc
	}

	src2 := rt
	switch {
	case c.Src2IsImm:
		src2 = uint32(int32(int16(imm)))
	case c.Src2IsZImm:
		src2 = uint32(imm)
	case c.Src2Is8:
		src2 = 8
	}

	return src1, src2
}

// Compute performs the one-hot ALU operation. Shifts shift src2 by the low
// five bits of src1.
func (a *ALU) Compute(op insts.ALUOp, src1, src2 uint32) uint32 {
	sa := src1 & 0x1F

	switch op {
	case insts.ALUAdd:
		return src1 + src2
	case insts.ALUSub:
		return src1 - src2
	case insts.ALUSlt:
		if int32(src1) < int32(src2) {
			return 1
		}
		return 0
	case insts.ALUSltu:
		if src1 < src2 {
			return 1
		}
		return 0
	case insts.ALUAnd:
		return src1 & src2
	case insts.ALUNor:
		return ^(src1 | src2)
	case insts.ALUOr:
		return src1 | src2
	case insts.ALUXor:
		return src1 ^ src2
	case insts.ALUSll:
		return src2 << sa
	case insts.ALUSrl:
		return src2 >> sa
	case insts.ALUSra:
		return uint32(int32(src2) >> sa)
	case insts.ALULui:
		return src2 << 16
	default:
		return 0
	}
}

// Overflows reports whether a signed add or subtract overflowed.
func (a *ALU) Overflows(op insts.ALUOp, src1, src2, result uint32) bool {
	switch op {
	case insts.ALUAdd:
		return (^(src1 ^ src2) & (src1 ^ result) >> 31) == 1
	case insts.ALUSub:
		return ((src1 ^ src2) & (src1 ^ result) >> 31) == 1
	default:
		return false
	}
}

// BranchTaken evaluates the condition of a branch or jump given its source
// operand values. Jumps are always taken.
func BranchTaken(op insts.Op, rs, rt uint32) bool {
	switch op {
	case insts.OpBEQ:
		return rs == rt
	case insts.OpBNE:
		return rs != rt
	case insts.OpBLEZ:
		return int32(rs) <= 0
	case insts.OpBGTZ:
		return int32(rs) > 0
	case insts.OpBLTZ:
		return int32(rs) < 0
	case insts.OpBGEZ:
		return int32(rs) >= 0
	case insts.OpJ, insts.OpJAL, insts.OpJR, insts.OpJALR:
		return true
	default:
		return false
	}
}

// ControlTarget returns the destination of a taken branch or jump at pc.
func ControlTarget(inst *insts.Instruction, pc, rs uint32) uint32 {
	switch inst.Op {
	case insts.OpJ, insts.OpJAL:
		return inst.JumpTarget(pc)
	case insts.OpJR, insts.OpJALR:
		return rs
	default:
		return inst.BranchTarget(pc)
	}
}
