package emu

import "encoding/binary"

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// Memory is a sparse, byte-addressed, little-endian 32-bit address space.
// Unwritten bytes read as zero.
type Memory struct {
	pages map[uint32][]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32][]byte)}
}

func (m *Memory) page(addr uint32, create bool) []byte {
	p, ok := m.pages[addr>>pageBits]
	if !ok && create {
		p = make([]byte, pageSize)
		m.pages[addr>>pageBits] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	m.page(addr, true)[addr&pageMask] = value
}

// ReadWord reads the aligned word containing addr.
func (m *Memory) ReadWord(addr uint32) uint32 {
	addr &^= 3
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	off := addr & pageMask
	return binary.LittleEndian.Uint32(p[off : off+4])
}

// WriteWord writes the aligned word containing addr.
func (m *Memory) WriteWord(addr uint32, value uint32) {
	addr &^= 3
	off := addr & pageMask
	binary.LittleEndian.PutUint32(m.page(addr, true)[off:off+4], value)
}

// LoadBytes copies data into memory starting at addr.
func (m *Memory) LoadBytes(addr uint32, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint32(i), b)
	}
}

// LoadWords writes consecutive words starting at the aligned address addr.
// It is convenient for placing hand-assembled programs.
func (m *Memory) LoadWords(addr uint32, words ...uint32) {
	for i, w := range words {
		m.WriteWord(addr+uint32(4*i), w)
	}
}

// ReadBytes copies n bytes starting at addr.
func (m *Memory) ReadBytes(addr uint32, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = m.Read8(addr + uint32(i))
	}
	return buf
}
