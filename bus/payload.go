package bus

import (
	"fmt"
	"strings"
)

// Payload is the bit-exact contents of one bus for one cycle. It holds
// exactly Layout.Width bits.
type Payload struct {
	layout *Layout
	words  []uint64
}

// NewPayload creates an all-zero payload for a layout.
func NewPayload(layout *Layout) Payload {
	return Payload{
		layout: layout,
		words:  make([]uint64, (layout.width+63)/64),
	}
}

// Layout returns the layout of the payload.
func (p Payload) Layout() *Layout { return p.layout }

// Width returns the payload width in bits.
func (p Payload) Width() int { return p.layout.width }

// Set stores v into a field, truncated to the field width. Setting a field
// the layout does not declare panics: producer and consumer disagree on the
// bus shape, which is an integration error.
func (p Payload) Set(field string, v uint64) Payload {
	off, width := p.locate(field)
	p.put(off, width, v)
	return p
}

// SetBool stores a one-bit flag.
func (p Payload) SetBool(field string, v bool) Payload {
	if v {
		return p.Set(field, 1)
	}
	return p.Set(field, 0)
}

// Get reads a field.
func (p Payload) Get(field string) uint64 {
	off, width := p.locate(field)
	return p.take(off, width)
}

// Uint32 reads a field as a 32-bit value.
func (p Payload) Uint32(field string) uint32 {
	return uint32(p.Get(field))
}

// Uint8 reads a field as an 8-bit value.
func (p Payload) Uint8(field string) uint8 {
	return uint8(p.Get(field))
}

// Bool reads a one-bit flag.
func (p Payload) Bool(field string) bool {
	return p.Get(field) != 0
}

// Equal reports whether two payloads share a layout and hold the same bits.
func (p Payload) Equal(o Payload) bool {
	if p.layout != o.layout || len(p.words) != len(o.words) {
		return false
	}
	for i := range p.words {
		if p.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// String renders the payload as hex, most significant nibble first.
func (p Payload) String() string {
	nibbles := (p.layout.width + 3) / 4
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s[%d]=0x", p.layout.name, p.layout.width))
	for i := nibbles - 1; i >= 0; i-- {
		width := 4
		if rem := p.layout.width - i*4; rem < 4 {
			width = rem
		}
		sb.WriteString(fmt.Sprintf("%x", p.take(i*4, width)))
	}
	return sb.String()
}

func (p Payload) locate(field string) (int, int) {
	i, ok := p.layout.index[field]
	if !ok {
		panic(fmt.Sprintf("bus %s has no field %q", p.layout.name, field))
	}
	return p.layout.offsets[field], p.layout.fields[i].Width
}

func (p Payload) put(off, width int, v uint64) {
	for i := 0; i < width; {
		word, bit := (off+i)/64, (off+i)%64
		n := min(64-bit, width-i)
		mask := uint64(1)<<n - 1
		p.words[word] = p.words[word]&^(mask<<bit) | ((v>>i)&mask)<<bit
		i += n
	}
}

func (p Payload) take(off, width int) uint64 {
	var v uint64
	for i := 0; i < width; {
		word, bit := (off+i)/64, (off+i)%64
		n := min(64-bit, width-i)
		mask := uint64(1)<<n - 1
		v |= ((p.words[word] >> bit) & mask) << i
		i += n
	}
	return v
}
