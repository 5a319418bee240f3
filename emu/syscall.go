package emu

import "io"

// MIPS O32 Linux syscall numbers.
const (
	SyscallExit      uint32 = 4001 // exit(status)
	SyscallRead      uint32 = 4003 // read(fd, buf, count)
	SyscallWrite     uint32 = 4004 // write(fd, buf, count)
	SyscallExitGroup uint32 = 4246 // exit_group(status)
)

// MaxIOSize bounds the bytes moved by one read or write. Larger requests
// complete short, as a pipe or terminal would.
const MaxIOSize = 64 * 1024

// Linux error codes.
const (
	EIO    = 5  // I/O error
	EBADF  = 9  // Bad file descriptor
	ENOSYS = 89 // Function not implemented (MIPS numbering)
)

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler is the interface for handling MIPS syscalls.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	// MIPS O32 Linux convention:
	//   - Syscall number in $v0
	//   - Arguments in $a0-$a3
	//   - Return value in $v0, $a3 set to 1 on error
	Handle() SyscallResult
}

// DefaultSyscallHandler provides a basic syscall handler implementation.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.stdin = stdin
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	switch h.regFile.ReadReg(RegV0) {
	case SyscallExit, SyscallExitGroup:
		return SyscallResult{
			Exited:   true,
			ExitCode: int64(int32(h.regFile.ReadReg(RegA0))),
		}
	case SyscallRead:
		return h.handleRead()
	case SyscallWrite:
		return h.handleWrite()
	default:
		h.setError(ENOSYS)
		return SyscallResult{}
	}
}

func (h *DefaultSyscallHandler) handleRead() SyscallResult {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := min(h.regFile.ReadReg(RegA2), MaxIOSize)

	if fd != 0 {
		h.setError(EBADF)
		return SyscallResult{}
	}

	// No stdin reads as EOF.
	if h.stdin == nil {
		h.setResult(0)
		return SyscallResult{}
	}

	buf := make([]byte, count)
	n, err := h.stdin.Read(buf)
	if err != nil && n == 0 {
		h.setResult(0)
		return SyscallResult{}
	}

	h.memory.LoadBytes(bufPtr, buf[:n])
	h.setResult(uint32(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleWrite() SyscallResult {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := min(h.regFile.ReadReg(RegA2), MaxIOSize)

	var writer io.Writer
	switch fd {
	case 1:
		writer = h.stdout
	case 2:
		writer = h.stderr
	default:
		h.setError(EBADF)
		return SyscallResult{}
	}

	n, err := writer.Write(h.memory.ReadBytes(bufPtr, int(count)))
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}
	}

	h.setResult(uint32(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) setResult(v uint32) {
	h.regFile.WriteReg(RegV0, v)
	h.regFile.WriteReg(RegA3, 0)
}

// setError reports errno in $v0 and flags the failure in $a3.
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteReg(RegV0, uint32(errno))
	h.regFile.WriteReg(RegA3, 1)
}
