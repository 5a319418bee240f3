package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("R-type", func() {
		// ADDU $3, $1, $2 -> 0x00221821
		It("should decode ADDU $3, $1, $2", func() {
			inst := decoder.Decode(0x00221821)

			Expect(inst.Op).To(Equal(insts.OpADDU))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rs).To(Equal(uint8(1)))
			Expect(inst.Rt).To(Equal(uint8(2)))
			Expect(inst.Rd).To(Equal(uint8(3)))
		})

		// SRA $4, $5, 3 -> 0x000520C3
		It("should decode SRA $4, $5, 3", func() {
			inst := decoder.Decode(0x000520C3)

			Expect(inst.Op).To(Equal(insts.OpSRA))
			Expect(inst.Rt).To(Equal(uint8(5)))
			Expect(inst.Rd).To(Equal(uint8(4)))
			Expect(inst.Shamt).To(Equal(uint8(3)))
		})

		It("should decode NOP as SLL $0, $0, 0", func() {
			inst := decoder.Decode(0)
			Expect(inst.Op).To(Equal(insts.OpSLL))
			Expect(inst.Rd).To(Equal(uint8(0)))
		})

		// JR $31 -> 0x03E00008
		It("should decode JR $31", func() {
			inst := decoder.Decode(0x03E00008)
			Expect(inst.Op).To(Equal(insts.OpJR))
			Expect(inst.Rs).To(Equal(uint8(31)))
		})

		It("should decode SYSCALL", func() {
			Expect(decoder.Decode(0x0000000C).Op).To(Equal(insts.OpSYSCALL))
		})

		It("should reject ALU forms with a non-zero shift amount", func() {
			word := insts.ADDU(3, 1, 2) | 1<<6
			Expect(decoder.Decode(word).Op).To(Equal(insts.OpUnknown))
		})

		It("should reject unknown function codes", func() {
			Expect(decoder.Decode(0x0000003F).Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("I-type", func() {
		// LW $2, 4($1) -> 0x8C220004
		It("should decode LW $2, 4($1)", func() {
			inst := decoder.Decode(0x8C220004)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rs).To(Equal(uint8(1)))
			Expect(inst.Rt).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(uint16(4)))
		})

		// ADDIU $29, $29, -8 -> 0x27BDFFF8
		It("should decode ADDIU $sp, $sp, -8", func() {
			inst := decoder.Decode(0x27BDFFF8)

			Expect(inst.Op).To(Equal(insts.OpADDIU))
			Expect(inst.Rs).To(Equal(uint8(29)))
			Expect(inst.Rt).To(Equal(uint8(29)))
			Expect(int32(inst.SignExtImm())).To(Equal(int32(-8)))
		})

		DescribeTable("memory opcodes",
			func(opcode uint8, op insts.Op) {
				Expect(decoder.Decode(insts.Load(opcode, 8, 9, 3)).Op).To(Equal(op))
			},
			Entry("LB", uint8(insts.OpcodeLB), insts.OpLB),
			Entry("LBU", uint8(insts.OpcodeLBU), insts.OpLBU),
			Entry("LH", uint8(insts.OpcodeLH), insts.OpLH),
			Entry("LHU", uint8(insts.OpcodeLHU), insts.OpLHU),
			Entry("LW", uint8(insts.OpcodeLW), insts.OpLW),
			Entry("LWL", uint8(insts.OpcodeLWL), insts.OpLWL),
			Entry("LWR", uint8(insts.OpcodeLWR), insts.OpLWR),
			Entry("SB", uint8(insts.OpcodeSB), insts.OpSB),
			Entry("SH", uint8(insts.OpcodeSH), insts.OpSH),
			Entry("SW", uint8(insts.OpcodeSW), insts.OpSW),
			Entry("SWL", uint8(insts.OpcodeSWL), insts.OpSWL),
			Entry("SWR", uint8(insts.OpcodeSWR), insts.OpSWR),
		)

		It("should decode REGIMM branches by rt", func() {
			Expect(decoder.Decode(insts.BGEZ(4, 2)).Op).To(Equal(insts.OpBGEZ))
			Expect(decoder.Decode(insts.EncodeI(insts.OpcodeRegImm, 4, insts.RegImmBLTZ, 2)).Op).
				To(Equal(insts.OpBLTZ))
			Expect(decoder.Decode(insts.EncodeI(insts.OpcodeRegImm, 4, 0x11, 2)).Op).
				To(Equal(insts.OpUnknown))
		})

		It("should reject unknown opcodes", func() {
			Expect(decoder.Decode(0xFC000000).Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("J-type", func() {
		It("should decode JAL", func() {
			inst := decoder.Decode(insts.JAL(0x00400020))
			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Target).To(Equal(uint32(0x00100008)))
		})
	})
})
