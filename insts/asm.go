package insts

// EncodeR encodes a SPECIAL (R-type) instruction.
func EncodeR(funct, rs, rt, rd, shamt uint8) uint32 {
	return uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 | uint32(rd&0x1F)<<11 |
		uint32(shamt&0x1F)<<6 | uint32(funct&0x3F)
}

// EncodeI encodes an I-type instruction.
func EncodeI(opcode, rs, rt uint8, imm uint16) uint32 {
	return uint32(opcode&0x3F)<<26 | uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 | uint32(imm)
}

// EncodeJ encodes a J-type instruction. target is a byte address; only bits
// [27:2] are encoded.
func EncodeJ(opcode uint8, target uint32) uint32 {
	return uint32(opcode&0x3F)<<26 | (target>>2)&0x03FFFFFF
}

// Mnemonic helpers, assembling in the usual operand order.

// NOP encodes SLL $0, $0, 0.
func NOP() uint32 { return 0 }

// ADDU encodes ADDU rd, rs, rt.
func ADDU(rd, rs, rt uint8) uint32 { return EncodeR(FunctADDU, rs, rt, rd, 0) }

// ADD encodes ADD rd, rs, rt.
func ADD(rd, rs, rt uint8) uint32 { return EncodeR(FunctADD, rs, rt, rd, 0) }

// SUBU encodes SUBU rd, rs, rt.
func SUBU(rd, rs, rt uint8) uint32 { return EncodeR(FunctSUBU, rs, rt, rd, 0) }

// SLT encodes SLT rd, rs, rt.
func SLT(rd, rs, rt uint8) uint32 { return EncodeR(FunctSLT, rs, rt, rd, 0) }

// OR encodes OR rd, rs, rt.
func OR(rd, rs, rt uint8) uint32 { return EncodeR(FunctOR, rs, rt, rd, 0) }

// SLL encodes SLL rd, rt, sa.
func SLL(rd, rt, sa uint8) uint32 { return EncodeR(FunctSLL, 0, rt, rd, sa) }

// JR encodes JR rs.
func JR(rs uint8) uint32 { return EncodeR(FunctJR, rs, 0, 0, 0) }

// JALR encodes JALR rd, rs.
func JALR(rd, rs uint8) uint32 { return EncodeR(FunctJALR, rs, 0, rd, 0) }

// SYSCALL encodes SYSCALL.
func SYSCALL() uint32 { return FunctSYSCALL }

// ADDI encodes ADDI rt, rs, imm.
func ADDI(rt, rs uint8, imm int16) uint32 { return EncodeI(OpcodeADDI, rs, rt, uint16(imm)) }

// ADDIU encodes ADDIU rt, rs, imm.
func ADDIU(rt, rs uint8, imm int16) uint32 { return EncodeI(OpcodeADDIU, rs, rt, uint16(imm)) }

// ORI encodes ORI rt, rs, imm.
func ORI(rt, rs uint8, imm uint16) uint32 { return EncodeI(OpcodeORI, rs, rt, imm) }

// LUI encodes LUI rt, imm.
func LUI(rt uint8, imm uint16) uint32 { return EncodeI(OpcodeLUI, 0, rt, imm) }

// BEQ encodes BEQ rs, rt, offset where offset counts instructions from the
// delay slot.
func BEQ(rs, rt uint8, offset int16) uint32 { return EncodeI(OpcodeBEQ, rs, rt, uint16(offset)) }

// BNE encodes BNE rs, rt, offset.
func BNE(rs, rt uint8, offset int16) uint32 { return EncodeI(OpcodeBNE, rs, rt, uint16(offset)) }

// BGEZ encodes BGEZ rs, offset.
func BGEZ(rs uint8, offset int16) uint32 {
	return EncodeI(OpcodeRegImm, rs, RegImmBGEZ, uint16(offset))
}

// J encodes J target.
func J(target uint32) uint32 { return EncodeJ(OpcodeJ, target) }

// JAL encodes JAL target.
func JAL(target uint32) uint32 { return EncodeJ(OpcodeJAL, target) }

// Load encodes a load with the given opcode: op rt, offset(base).
func Load(opcode, rt, base uint8, offset int16) uint32 {
	return EncodeI(opcode, base, rt, uint16(offset))
}

// Store encodes a store with the given opcode: op rt, offset(base).
func Store(opcode, rt, base uint8, offset int16) uint32 {
	return EncodeI(opcode, base, rt, uint16(offset))
}
