package memaccess_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/memaccess"
)

var _ = Describe("Codec", func() {
	const base uint32 = 0x1000

	Describe("Lanes", func() {
		It("should expand to a byte mask", func() {
			Expect(memaccess.Lanes(0b0001).Mask()).To(Equal(uint32(0x000000FF)))
			Expect(memaccess.Lanes(0b1010).Mask()).To(Equal(uint32(0xFF00FF00)))
			Expect(memaccess.AllLanes.Mask()).To(Equal(uint32(0xFFFFFFFF)))
			Expect(memaccess.Lanes(0b0110).Count()).To(Equal(2))
			Expect(memaccess.Lanes(0b0100).Has(2)).To(BeTrue())
			Expect(memaccess.Lanes(0b0100).Has(4)).To(BeFalse())
		})

		DescribeTable("left and right lane sets",
			func(offset uint32, left, right memaccess.Lanes) {
				l, err := memaccess.LeftLanes(offset)
				Expect(err).NotTo(HaveOccurred())
				Expect(l).To(Equal(left))
				r, err := memaccess.RightLanes(offset)
				Expect(err).NotTo(HaveOccurred())
				Expect(r).To(Equal(right))
			},
			Entry("offset 0", uint32(0), memaccess.Lanes(0b1111), memaccess.Lanes(0b0001)),
			Entry("offset 1", uint32(1), memaccess.Lanes(0b1110), memaccess.Lanes(0b0011)),
			Entry("offset 2", uint32(2), memaccess.Lanes(0b1100), memaccess.Lanes(0b0111)),
			Entry("offset 3", uint32(3), memaccess.Lanes(0b1000), memaccess.Lanes(0b1111)),
		)

		It("should fault on an offset outside the word", func() {
			_, err := memaccess.LeftLanes(4)
			Expect(err).To(MatchError(memaccess.ErrAlignmentFault))
			_, err = memaccess.RightLanes(7)
			Expect(err).To(MatchError(memaccess.ErrAlignmentFault))
		})

		It("should reject unknown kinds", func() {
			_, err := memaccess.LoadLanes(memaccess.LoadKind(7), base)
			Expect(err).To(MatchError(memaccess.ErrUnknownKind))
			_, err = memaccess.StoreLanes(memaccess.StoreKind(2), base)
			Expect(err).To(MatchError(memaccess.ErrUnknownKind))
		})
	})

	Describe("DecodeLoad", func() {
		It("should succeed for words exactly when the address is aligned", func() {
			for a := base; a < base+64; a++ {
				v, err := memaccess.DecodeLoad(memaccess.LoadWord, a, 0xCAFEF00D)
				if a%4 == 0 {
					Expect(err).NotTo(HaveOccurred())
					Expect(v).To(Equal(uint32(0xCAFEF00D)))
				} else {
					Expect(err).To(MatchError(memaccess.ErrAlignmentFault))
				}
			}
		})

		It("should select and sign-extend byte lanes", func() {
			v, err := memaccess.DecodeLoad(memaccess.LoadByte, base, 0x12345678)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x78)))

			v, err = memaccess.DecodeLoad(memaccess.LoadByte, base+3, 0x12345678)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x12)))

			v, err = memaccess.DecodeLoad(memaccess.LoadByte, base+3, 0x92345678)
			Expect(err).NotTo(HaveOccurred())
			Expect(int32(v)).To(Equal(int32(-0x6e)))
		})

		DescribeTable("byte loads at every offset",
			func(offset uint32, signed, unsigned uint32) {
				raw := uint32(0x80FF7F01)
				v, err := memaccess.DecodeLoad(memaccess.LoadByte, base+offset, raw)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(signed))
				v, err = memaccess.DecodeLoad(memaccess.LoadByteUnsigned, base+offset, raw)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(unsigned))
			},
			Entry("lane 0", uint32(0), uint32(0x00000001), uint32(0x01)),
			Entry("lane 1", uint32(1), uint32(0x0000007F), uint32(0x7F)),
			Entry("lane 2", uint32(2), uint32(0xFFFFFFFF), uint32(0xFF)),
			Entry("lane 3", uint32(3), uint32(0xFFFFFF80), uint32(0x80)),
		)

		It("should select and extend halfword lanes", func() {
			raw := uint32(0x8001_7FFE)
			v, err := memaccess.DecodeLoad(memaccess.LoadHalf, base, raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x7FFE)))

			v, err = memaccess.DecodeLoad(memaccess.LoadHalf, base+2, raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xFFFF8001)))

			v, err = memaccess.DecodeLoad(memaccess.LoadHalfUnsigned, base+2, raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x8001)))
		})

		It("should fault on a halfword at an odd address", func() {
			_, err := memaccess.DecodeLoad(memaccess.LoadHalf, 0x1003, 0xFFFFFFFF)
			Expect(err).To(MatchError(memaccess.ErrAlignmentFault))
			_, err = memaccess.DecodeLoad(memaccess.LoadHalfUnsigned, 0x1001, 0)
			Expect(err).To(MatchError(memaccess.ErrAlignmentFault))
		})

		DescribeTable("unaligned word loads keep lanes in place",
			func(offset uint32, left, right uint32) {
				raw := uint32(0x44332211)
				v, err := memaccess.DecodeLoad(memaccess.LoadWordLeft, base+offset, raw)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(left))
				v, err = memaccess.DecodeLoad(memaccess.LoadWordRight, base+offset, raw)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(right))
			},
			Entry("offset 0", uint32(0), uint32(0x44332211), uint32(0x00000011)),
			Entry("offset 1", uint32(1), uint32(0x44332200), uint32(0x00002211)),
			Entry("offset 2", uint32(2), uint32(0x44330000), uint32(0x00332211)),
			Entry("offset 3", uint32(3), uint32(0x44000000), uint32(0x44332211)),
		)
	})

	Describe("MergeLoad", func() {
		It("should fill untouched lanes from the prior register value", func() {
			v, err := memaccess.MergeLoad(memaccess.LoadWordLeft, base+2, 0x44330000, 0xAABBCCDD)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x4433CCDD)))

			v, err = memaccess.MergeLoad(memaccess.LoadWordRight, base+1, 0x00002211, 0xAABBCCDD)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xAABB2211)))
		})

		It("should pass whole-register loads through", func() {
			v, err := memaccess.MergeLoad(memaccess.LoadByteUnsigned, base+1, 0x7F, 0xFFFFFFFF)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x7F)))
		})

		It("should reconstruct the aligned word from a left then right load", func() {
			words := []uint32{0x12345678, 0xDEADBEEF, 0x00000000, 0xFFFFFFFF, 0x80808080}
			priors := []uint32{0, 0xFFFFFFFF, 0xA5A5A5A5}
			for _, mem := range words {
				for _, prior := range priors {
					for off := uint32(0); off < 4; off++ {
						a := base + off

						left, err := memaccess.DecodeLoad(memaccess.LoadWordLeft, a, mem)
						Expect(err).NotTo(HaveOccurred())
						reg, err := memaccess.MergeLoad(memaccess.LoadWordLeft, a, left, prior)
						Expect(err).NotTo(HaveOccurred())

						right, err := memaccess.DecodeLoad(memaccess.LoadWordRight, a, mem)
						Expect(err).NotTo(HaveOccurred())
						reg, err = memaccess.MergeLoad(memaccess.LoadWordRight, a, right, reg)
						Expect(err).NotTo(HaveOccurred())

						aligned, err := memaccess.DecodeLoad(memaccess.LoadWord, memaccess.AlignDown(a), mem)
						Expect(err).NotTo(HaveOccurred())
						Expect(reg).To(Equal(aligned), "offset %d", off)
					}
				}
			}
		})
	})

	Describe("EncodeStore", func() {
		It("should replace a whole aligned word", func() {
			v, err := memaccess.EncodeStore(memaccess.StoreWord, base, 0xAABBCCDD, 0x11223344)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x11223344)))

			_, err = memaccess.EncodeStore(memaccess.StoreWord, base+2, 0, 0)
			Expect(err).To(MatchError(memaccess.ErrAlignmentFault))
		})

		DescribeTable("byte stores touch one lane",
			func(offset uint32, want uint32) {
				v, err := memaccess.EncodeStore(memaccess.StoreByte, base+offset, 0xAABBCCDD, 0x12345699)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(want))
			},
			Entry("lane 0", uint32(0), uint32(0xAABBCC99)),
			Entry("lane 1", uint32(1), uint32(0xAABB99DD)),
			Entry("lane 2", uint32(2), uint32(0xAA99CCDD)),
			Entry("lane 3", uint32(3), uint32(0x99BBCCDD)),
		)

		It("should store halfwords into the addressed lane pair", func() {
			v, err := memaccess.EncodeStore(memaccess.StoreHalf, base, 0xAABBCCDD, 0xFFFF1234)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0xAABB1234)))

			v, err = memaccess.EncodeStore(memaccess.StoreHalf, base+2, 0xAABBCCDD, 0xFFFF1234)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x1234CCDD)))

			_, err = memaccess.EncodeStore(memaccess.StoreHalf, base+1, 0xAABBCCDD, 0)
			Expect(err).To(MatchError(memaccess.ErrAlignmentFault))
		})

		It("should write only lanes at and above the offset for SWL", func() {
			v, err := memaccess.EncodeStore(memaccess.StoreWordLeft, 0x1001, 0xAABBCCDD, 0x11223344)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint32(0x223344DD)))
		})

		DescribeTable("unaligned word stores at every offset",
			func(offset uint32, left, right uint32) {
				raw, value := uint32(0xAABBCCDD), uint32(0x11223344)
				v, err := memaccess.EncodeStore(memaccess.StoreWordLeft, base+offset, raw, value)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(left))
				v, err = memaccess.EncodeStore(memaccess.StoreWordRight, base+offset, raw, value)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal(right))
			},
			Entry("offset 0", uint32(0), uint32(0x11223344), uint32(0xAABBCC11)),
			Entry("offset 1", uint32(1), uint32(0x223344DD), uint32(0xAABB1122)),
			Entry("offset 2", uint32(2), uint32(0x3344CCDD), uint32(0xAA112233)),
			Entry("offset 3", uint32(3), uint32(0x44BBCCDD), uint32(0x11223344)),
		)

		It("should never touch lanes outside the store", func() {
			kinds := []memaccess.StoreKind{
				memaccess.StoreByte, memaccess.StoreWordLeft, memaccess.StoreWordRight,
			}
			for _, kind := range kinds {
				for off := uint32(0); off < 4; off++ {
					lanes, err := memaccess.StoreLanes(kind, base+off)
					Expect(err).NotTo(HaveOccurred())
					v, err := memaccess.EncodeStore(kind, base+off, 0x5A5A5A5A, 0xFFFFFFFF)
					Expect(err).NotTo(HaveOccurred())
					Expect(v &^ lanes.Mask()).To(Equal(uint32(0x5A5A5A5A) &^ lanes.Mask()))
				}
			}
		})

		It("should round-trip a byte through store and unsigned load", func() {
			words := []uint32{0, 0xFFFFFFFF, 0x12345678}
			values := []uint32{0x00, 0x7F, 0x80, 0xFF, 0x1234ABCD}
			for _, w := range words {
				for _, v := range values {
					for off := uint32(0); off < 4; off++ {
						stored, err := memaccess.EncodeStore(memaccess.StoreByte, base+off, w, v)
						Expect(err).NotTo(HaveOccurred())
						got, err := memaccess.DecodeLoad(memaccess.LoadByteUnsigned, base+off, stored)
						Expect(err).NotTo(HaveOccurred())
						Expect(got).To(Equal(v & 0xFF))
					}
				}
			}
		})
	})

	It("should align addresses down to their word", func() {
		Expect(memaccess.AlignDown(0x1003)).To(Equal(uint32(0x1000)))
		Expect(memaccess.Offset(0x1003)).To(Equal(uint32(3)))
	})
})
