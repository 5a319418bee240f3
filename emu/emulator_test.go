package emu_test

import (
	"bytes"
	"encoding/binary"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/memaccess"
)

func assemble(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

// exitSequence calls exit with the status already in $a0.
func exitSequence() []uint32 {
	return []uint32{
		insts.ADDIU(emu.RegV0, 0, int16(emu.SyscallExit)),
		insts.SYSCALL(),
	}
}

var _ = Describe("Emulator", func() {
	const entry = uint32(0x1000)

	var (
		e         *emu.Emulator
		stdoutBuf *bytes.Buffer
	)

	BeforeEach(func() {
		stdoutBuf = &bytes.Buffer{}
		e = emu.NewEmulator(
			emu.WithStdout(stdoutBuf),
			emu.WithStderr(&bytes.Buffer{}),
		)
	})

	load := func(words ...uint32) {
		e.LoadProgram(entry, assemble(words...))
	}

	Describe("LoadProgram", func() {
		It("should set the PC to the entry point", func() {
			load(insts.NOP())

			Expect(e.RegFile().PC).To(Equal(entry))
		})

		It("should load program bytes into memory", func() {
			e.LoadProgram(0x2000, []byte{0xDE, 0xAD, 0xBE, 0xEF})

			Expect(e.Memory().Read8(0x2000)).To(Equal(byte(0xDE)))
			Expect(e.Memory().Read8(0x2003)).To(Equal(byte(0xEF)))
		})
	})

	Describe("Step", func() {
		It("should execute ALU instructions", func() {
			load(
				insts.ADDIU(8, 0, 7),
				insts.ADDIU(9, 0, -2),
				insts.ADDU(10, 8, 9),
				insts.SLT(11, 9, 8),
			)

			for i := 0; i < 4; i++ {
				Expect(e.Step().Err).NotTo(HaveOccurred())
			}

			Expect(e.RegFile().ReadReg(10)).To(Equal(uint32(5)))
			Expect(e.RegFile().ReadReg(11)).To(Equal(uint32(1)))
			Expect(e.RegFile().PC).To(Equal(entry + 16))
			Expect(e.InstructionCount()).To(Equal(uint64(4)))
		})

		It("should build constants with LUI and ORI", func() {
			load(insts.LUI(8, 0x1234), insts.ORI(8, 8, 0x5678))

			e.Step()
			e.Step()

			Expect(e.RegFile().ReadReg(8)).To(Equal(uint32(0x12345678)))
		})

		It("should ignore writes to $zero", func() {
			load(insts.ADDIU(0, 0, 5))

			e.Step()

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint32(0)))
		})

		It("should execute the delay slot of a taken branch", func() {
			load(
				insts.BEQ(0, 0, 2),
				insts.ADDIU(8, 0, 1),
				insts.ADDIU(9, 0, 1),
				insts.ADDIU(10, 0, 1),
			)

			e.Step()
			e.Step()
			Expect(e.RegFile().PC).To(Equal(entry + 12))
			e.Step()

			Expect(e.RegFile().ReadReg(8)).To(Equal(uint32(1)))
			Expect(e.RegFile().ReadReg(9)).To(Equal(uint32(0)))
			Expect(e.RegFile().ReadReg(10)).To(Equal(uint32(1)))
		})

		It("should link past the delay slot on JAL", func() {
			load(
				insts.JAL(entry+16),
				insts.NOP(),
			)

			e.Step()
			e.Step()

			Expect(e.RegFile().PC).To(Equal(entry + 16))
			Expect(e.RegFile().ReadReg(emu.RegRA)).To(Equal(entry + 8))
		})

		It("should return through JR", func() {
			load(
				insts.ADDIU(8, 0, 0x100),
				insts.JR(8),
				insts.NOP(),
			)

			e.Step()
			e.Step()
			e.Step()

			Expect(e.RegFile().PC).To(Equal(uint32(0x100)))
		})

		It("should fault on signed overflow without writing", func() {
			load(
				insts.LUI(8, 0x7FFF),
				insts.ORI(8, 8, 0xFFFF),
				insts.ADDI(9, 8, 1),
			)

			e.Step()
			e.Step()
			result := e.Step()

			Expect(result.Err).To(MatchError(emu.ErrIntegerOverflow))
			Expect(e.RegFile().ReadReg(9)).To(Equal(uint32(0)))
			Expect(e.RegFile().PC).To(Equal(entry + 8))
		})

		It("should fault on reserved instructions", func() {
			load(0xFC000000)

			Expect(e.Step().Err).To(MatchError(emu.ErrReservedInstruction))
		})

		It("should stop at the instruction limit", func() {
			e = emu.NewEmulator(emu.WithMaxInstructions(1))
			load(insts.NOP(), insts.NOP())

			Expect(e.Step().Err).NotTo(HaveOccurred())
			Expect(e.Step().Err).To(MatchError(emu.ErrMaxInstructions))
		})
	})

	Describe("Memory instructions", func() {
		BeforeEach(func() {
			e.Memory().WriteWord(0x2000, 0x11223344)
			e.RegFile().WriteReg(16, 0x2000)
		})

		It("should sign- and zero-extend byte loads", func() {
			e.Memory().Write8(0x2001, 0x92)
			load(
				insts.Load(insts.OpcodeLB, 8, 16, 1),
				insts.Load(insts.OpcodeLBU, 9, 16, 1),
			)

			e.Step()
			e.Step()

			Expect(e.RegFile().ReadReg(8)).To(Equal(uint32(0xFFFFFF92)))
			Expect(e.RegFile().ReadReg(9)).To(Equal(uint32(0x92)))
		})

		It("should store a byte into its lane only", func() {
			e.RegFile().WriteReg(8, 0xAABBCCDD)
			load(insts.Store(insts.OpcodeSB, 8, 16, 2))

			e.Step()

			Expect(e.Memory().ReadWord(0x2000)).To(Equal(uint32(0x11DD3344)))
		})

		It("should store the left part with SWL", func() {
			e.RegFile().WriteReg(8, 0xAABBCCDD)
			load(insts.Store(insts.OpcodeSWL, 8, 16, 3))

			e.Step()

			Expect(e.Memory().ReadWord(0x2000)).To(Equal(uint32(0xDD223344)))
		})

		It("should merge LWL and LWR lanes into the register", func() {
			e.Memory().WriteWord(0x2004, 0x55667788)
			e.RegFile().WriteReg(8, 0xFFFFFFFF)
			load(
				insts.Load(insts.OpcodeLWL, 8, 16, 2),
				insts.Load(insts.OpcodeLWR, 8, 16, 1),
			)

			e.Step()
			Expect(e.RegFile().ReadReg(8)).To(Equal(uint32(0x1122FFFF)))
			e.Step()
			Expect(e.RegFile().ReadReg(8)).To(Equal(uint32(0x11223344)))
		})

		It("should fault on a misaligned halfword", func() {
			load(insts.Load(insts.OpcodeLH, 8, 16, 3))

			result := e.Step()

			Expect(result.Err).To(MatchError(memaccess.ErrAlignmentFault))
			Expect(e.RegFile().ReadReg(8)).To(Equal(uint32(0)))
		})
	})

	Describe("Run", func() {
		It("should run a counted loop to exit", func() {
			words := []uint32{
				insts.ADDIU(8, 0, 5),
				insts.ADDU(9, 0, 0),
				insts.ADDU(9, 9, 8),
				insts.ADDIU(8, 8, -1),
				insts.BNE(8, 0, -3),
				insts.NOP(),
				insts.ADDU(emu.RegA0, 9, 0),
			}
			load(append(words, exitSequence()...)...)

			Expect(e.Run()).To(Equal(int64(15)))
		})

		It("should write to stdout", func() {
			e.Memory().LoadBytes(0x3000, []byte("hi\n"))
			words := []uint32{
				insts.ADDIU(emu.RegV0, 0, int16(emu.SyscallWrite)),
				insts.ADDIU(emu.RegA0, 0, 1),
				insts.ADDIU(emu.RegA1, 0, 0x3000),
				insts.ADDIU(emu.RegA2, 0, 3),
				insts.SYSCALL(),
				insts.ADDIU(emu.RegA0, 0, 0),
			}
			load(append(words, exitSequence()...)...)

			Expect(e.Run()).To(Equal(int64(0)))
			Expect(stdoutBuf.String()).To(Equal("hi\n"))
		})

		It("should read from the configured stdin", func() {
			e = emu.NewEmulator(emu.WithStdin(strings.NewReader("Q")))
			words := []uint32{
				insts.ADDIU(emu.RegV0, 0, int16(emu.SyscallRead)),
				insts.ADDIU(emu.RegA0, 0, 0),
				insts.ADDIU(emu.RegA1, 0, 0x3000),
				insts.ADDIU(emu.RegA2, 0, 1),
				insts.SYSCALL(),
				insts.Load(insts.OpcodeLBU, emu.RegA0, emu.RegA1, 0),
			}
			load(append(words, exitSequence()...)...)

			Expect(e.Run()).To(Equal(int64('Q')))
		})

		It("should return -1 on a fault", func() {
			load(0xFC000000)

			Expect(e.Run()).To(Equal(int64(-1)))
		})
	})

	Describe("Reset", func() {
		It("should clear registers and memory", func() {
			load(insts.ADDIU(8, 0, 1))
			e.Step()

			e.Reset()

			Expect(e.RegFile().ReadReg(8)).To(Equal(uint32(0)))
			Expect(e.Memory().ReadWord(entry)).To(Equal(uint32(0)))
			Expect(e.InstructionCount()).To(BeZero())
		})
	})
})
