// Package emu provides functional MIPS32 emulation.
package emu

// Conventional register numbers.
const (
	RegZero uint8 = 0
	RegAT   uint8 = 1
	RegV0   uint8 = 2
	RegV1   uint8 = 3
	RegA0   uint8 = 4
	RegA1   uint8 = 5
	RegA2   uint8 = 6
	RegA3   uint8 = 7
	RegSP   uint8 = 29
	RegRA   uint8 = 31
)

// RegFile represents the MIPS32 general-purpose register file.
type RegFile struct {
	// R holds registers $0-$31. R[0] is kept at zero.
	R [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.R[reg] = value
}
