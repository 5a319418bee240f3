package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c      *cache.Cache
		memory *emu.Memory
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		// 256B, 2-way, 16B lines = 8 sets; addresses 0x80 apart share a set.
		c = cache.New(cache.Config{
			Size:          256,
			Associativity: 2,
			BlockSize:     16,
		}, cache.NewMemoryBacking(memory))
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			memory.WriteWord(0x1000, 0xDEADBEEF)

			result := c.ReadWord(0x1000)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Data).To(Equal(uint32(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(BeZero())
		})

		It("should hit on cached data", func() {
			memory.WriteWord(0x1000, 0xCAFEBABE)

			c.ReadWord(0x1000)
			result := c.ReadWord(0x1000)

			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0xCAFEBABE)))
			Expect(c.Stats().HitRate()).To(Equal(0.5))
		})

		It("should hit on different words in the same line", func() {
			memory.WriteWord(0x100C, 0x12345678)

			c.ReadWord(0x1000)
			result := c.ReadWord(0x100E)

			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x12345678)))
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.WriteWord(0x2000, 0x11111111)
			Expect(result.Hit).To(BeFalse())

			Expect(c.ReadWord(0x2000).Hit).To(BeTrue())
		})

		It("should keep writes in the cache until flushed", func() {
			c.WriteWord(0x2000, 0x22222222)

			Expect(memory.ReadWord(0x2000)).To(BeZero())
			Expect(c.ReadWord(0x2000).Data).To(Equal(uint32(0x22222222)))
		})
	})

	Describe("Eviction", func() {
		It("should evict the least recently used way", func() {
			c.WriteWord(0x000, 0xAAAAAAAA)
			c.WriteWord(0x080, 0xBBBBBBBB)
			c.ReadWord(0x000)

			result := c.ReadWord(0x100)

			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint32(0x080)))
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should write back dirty evicted blocks", func() {
			c.WriteWord(0x000, 0xAAAAAAAA)
			c.WriteWord(0x080, 0xBBBBBBBB)
			c.ReadWord(0x100)

			Expect(memory.ReadWord(0x000)).To(Equal(uint32(0xAAAAAAAA)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("should write back all dirty blocks", func() {
			c.WriteWord(0x0000, 0x11111111)
			c.WriteWord(0x1004, 0x22222222)

			c.Flush()

			Expect(memory.ReadWord(0x0000)).To(Equal(uint32(0x11111111)))
			Expect(memory.ReadWord(0x1004)).To(Equal(uint32(0x22222222)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
			Expect(c.ReadWord(0x0000).Hit).To(BeFalse())
		})
	})

	Describe("Invalidate", func() {
		It("should drop a dirty line without writing it back", func() {
			c.WriteWord(0x40, 0x33333333)

			c.Invalidate(0x40)

			Expect(c.ReadWord(0x40).Data).To(BeZero())
			Expect(c.Stats().Writebacks).To(BeZero())
		})
	})

	Describe("Statistics", func() {
		It("should clear counters but keep lines on ResetStats", func() {
			memory.WriteWord(0x1000, 0x11223344)
			c.ReadWord(0x1000)
			c.WriteWord(0x1004, 7)

			c.ResetStats()
			Expect(c.Stats()).To(Equal(cache.Statistics{}))

			result := c.ReadWord(0x1004)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(7)))
			Expect(c.Stats().Hits).To(Equal(uint64(1)))
		})

		It("should drop lines and counters on Reset", func() {
			c.WriteWord(0x1000, 9)

			c.Reset()

			Expect(c.Stats()).To(Equal(cache.Statistics{}))
			result := c.ReadWord(0x1000)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Data).To(BeZero())
		})
	})

	Describe("DefaultConfig", func() {
		It("should describe a small two-way cache", func() {
			config := cache.DefaultConfig()
			Expect(config.Associativity).To(Equal(2))
			Expect(config.NumSets()).To(Equal(128))
		})
	})
})
