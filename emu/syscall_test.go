package emu_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

var _ = Describe("Syscall Handler", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		stdout  *bytes.Buffer
		stderr  *bytes.Buffer
		handler *emu.DefaultSyscallHandler
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
		handler = emu.NewDefaultSyscallHandler(regFile, memory, stdout, stderr)
	})

	call := func(num uint32, args ...uint32) emu.SyscallResult {
		regFile.WriteReg(emu.RegV0, num)
		for i, a := range args {
			regFile.WriteReg(emu.RegA0+uint8(i), a)
		}
		return handler.Handle()
	}

	Describe("exit", func() {
		It("should exit with the status in $a0", func() {
			result := call(emu.SyscallExit, 3)

			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int64(3)))
		})

		It("should treat exit_group the same way", func() {
			result := call(emu.SyscallExitGroup, 0xFFFFFFFF)

			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int64(-1)))
		})
	})

	Describe("write", func() {
		BeforeEach(func() {
			memory.LoadBytes(0x1000, []byte("hello"))
		})

		It("should write to stdout and return the count", func() {
			result := call(emu.SyscallWrite, 1, 0x1000, 5)

			Expect(result.Exited).To(BeFalse())
			Expect(stdout.String()).To(Equal("hello"))
			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(5)))
			Expect(regFile.ReadReg(emu.RegA3)).To(Equal(uint32(0)))
		})

		It("should write to stderr", func() {
			call(emu.SyscallWrite, 2, 0x1000, 4)

			Expect(stderr.String()).To(Equal("hell"))
			Expect(stdout.Len()).To(BeZero())
		})

		It("should return EBADF for other descriptors", func() {
			call(emu.SyscallWrite, 42, 0x1000, 5)

			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(emu.EBADF)))
			Expect(regFile.ReadReg(emu.RegA3)).To(Equal(uint32(1)))
		})

		It("should return EIO when the writer fails", func() {
			handler = emu.NewDefaultSyscallHandler(regFile, memory, failingWriter{}, stderr)

			call(emu.SyscallWrite, 1, 0x1000, 5)

			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(emu.EIO)))
			Expect(regFile.ReadReg(emu.RegA3)).To(Equal(uint32(1)))
		})

		It("should complete an oversized write short", func() {
			call(emu.SyscallWrite, 1, 0x1000, 0x80000000)

			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(emu.MaxIOSize)))
			Expect(regFile.ReadReg(emu.RegA3)).To(Equal(uint32(0)))
			Expect(stdout.Len()).To(Equal(emu.MaxIOSize))
			Expect(stdout.String()).To(HavePrefix("hello"))
		})
	})

	Describe("read", func() {
		It("should read EOF without stdin", func() {
			call(emu.SyscallRead, 0, 0x2000, 8)

			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(0)))
			Expect(regFile.ReadReg(emu.RegA3)).To(Equal(uint32(0)))
		})

		It("should copy stdin into memory", func() {
			handler.SetStdin(strings.NewReader("abc"))

			call(emu.SyscallRead, 0, 0x2000, 8)

			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(3)))
			Expect(memory.ReadBytes(0x2000, 3)).To(Equal([]byte("abc")))
		})

		It("should complete an oversized read short", func() {
			handler.SetStdin(strings.NewReader(strings.Repeat("x", 2*emu.MaxIOSize)))

			call(emu.SyscallRead, 0, 0x2000, 0xFFFFFFFF)

			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(emu.MaxIOSize)))
			Expect(memory.Read8(0x2000 + emu.MaxIOSize - 1)).To(Equal(uint8('x')))
			Expect(memory.Read8(0x2000 + emu.MaxIOSize)).To(Equal(uint8(0)))
		})

		It("should reject descriptors other than stdin", func() {
			call(emu.SyscallRead, 1, 0x2000, 8)

			Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(emu.EBADF)))
			Expect(regFile.ReadReg(emu.RegA3)).To(Equal(uint32(1)))
		})
	})

	It("should return ENOSYS for unknown syscall numbers", func() {
		result := call(999)

		Expect(result.Exited).To(BeFalse())
		Expect(regFile.ReadReg(emu.RegV0)).To(Equal(uint32(emu.ENOSYS)))
		Expect(regFile.ReadReg(emu.RegA3)).To(Equal(uint32(1)))
	})
})
