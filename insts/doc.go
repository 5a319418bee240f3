// Package insts provides MIPS32 instruction definitions and decoding.
//
// This package implements decoding of MIPS32 machine code into structured
// instruction representations and derives the decode-stage control signals
// each instruction drives onto the DS_TO_ES bus. It supports:
//   - ALU register and immediate forms, shifts and LUI
//   - Branches (BEQ, BNE, BLEZ, BGTZ, BLTZ, BGEZ) and jumps (J, JAL, JR, JALR)
//   - Loads (LB, LBU, LH, LHU, LW, LWL, LWR) and stores (SB, SH, SW, SWL, SWR)
//   - SYSCALL
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x8c220004) // LW $2, 4($1)
//	ctrl := inst.Controls()
//	fmt.Printf("Op: %v, kind: %03b, dest: %d\n", inst.Op, ctrl.MemKind, ctrl.Dest)
package insts
