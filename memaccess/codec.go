package memaccess

import (
	"fmt"
	"math/bits"
)

// Lanes is a byte-enable set over the four byte lanes of a word. Bit i set
// means byte lane i (bits [8i+7:8i]) takes part in the access.
type Lanes uint8

// AllLanes enables every byte of a word.
const AllLanes Lanes = 0xF

// Mask expands the lane set into a 32-bit mask.
func (l Lanes) Mask() uint32 {
	var m uint32
	for i := 0; i < 4; i++ {
		if l&(1<<i) != 0 {
			m |= 0xFF << (8 * i)
		}
	}
	return m
}

// Has reports whether lane i is enabled.
func (l Lanes) Has(i int) bool {
	return i >= 0 && i < 4 && l&(1<<i) != 0
}

// Count returns the number of enabled lanes.
func (l Lanes) Count() int {
	return bits.OnesCount8(uint8(l & AllLanes))
}

// Offset returns the byte offset of addr within its word.
func Offset(addr uint32) uint32 { return addr & 3 }

// AlignDown returns the address of the word containing addr.
func AlignDown(addr uint32) uint32 { return addr &^ 3 }

// LeftLanes returns the lanes at and above offset, the set a word-left
// access touches.
func LeftLanes(offset uint32) (Lanes, error) {
	if offset > 3 {
		return 0, fmt.Errorf("%w: lane offset %d", ErrAlignmentFault, offset)
	}
	return (AllLanes << offset) & AllLanes, nil
}

// RightLanes returns the lanes up to and including offset, the set a
// word-right access touches.
func RightLanes(offset uint32) (Lanes, error) {
	if offset > 3 {
		return 0, fmt.Errorf("%w: lane offset %d", ErrAlignmentFault, offset)
	}
	return AllLanes >> (3 - offset), nil
}

// LoadLanes returns the byte lanes a load of the given kind reads.
func LoadLanes(kind LoadKind, addr uint32) (Lanes, error) {
	switch kind {
	case LoadWord:
		return wordLanes(kind.String(), addr)
	case LoadByte, LoadByteUnsigned:
		return byteLanes(addr), nil
	case LoadHalf, LoadHalfUnsigned:
		return halfLanes(kind.String(), addr)
	case LoadWordLeft:
		return LeftLanes(Offset(addr))
	case LoadWordRight:
		return RightLanes(Offset(addr))
	default:
		return 0, fmt.Errorf("%w: load tag %03b", ErrUnknownKind, uint8(kind))
	}
}

// StoreLanes returns the byte lanes a store of the given kind writes.
func StoreLanes(kind StoreKind, addr uint32) (Lanes, error) {
	switch kind {
	case StoreWord:
		return wordLanes(kind.String(), addr)
	case StoreByte:
		return byteLanes(addr), nil
	case StoreHalf:
		return halfLanes(kind.String(), addr)
	case StoreWordLeft:
		return LeftLanes(Offset(addr))
	case StoreWordRight:
		return RightLanes(Offset(addr))
	default:
		return 0, fmt.Errorf("%w: store tag %03b", ErrUnknownKind, uint8(kind))
	}
}

func wordLanes(op string, addr uint32) (Lanes, error) {
	if addr&3 != 0 {
		return 0, fmt.Errorf("%w: %s at 0x%08x", ErrAlignmentFault, op, addr)
	}
	return AllLanes, nil
}

func halfLanes(op string, addr uint32) (Lanes, error) {
	if addr&1 != 0 {
		return 0, fmt.Errorf("%w: %s at 0x%08x", ErrAlignmentFault, op, addr)
	}
	return 0b0011 << Offset(addr), nil
}

func byteLanes(addr uint32) Lanes {
	return 1 << Offset(addr)
}

// DecodeLoad extracts the value a load of the given kind reads from raw, the
// aligned word containing addr.
//
// Byte and halfword loads are sign- or zero-extended to 32 bits. LWL returns
// the bytes of raw at and above the address offset, in place, with the lower
// lanes zero; LWR returns the bytes up to and including the offset, in place,
// with the upper lanes zero. In both cases the zero lanes are filled from the
// destination register's previous value by MergeLoad.
func DecodeLoad(kind LoadKind, addr, raw uint32) (uint32, error) {
	lanes, err := LoadLanes(kind, addr)
	if err != nil {
		return 0, err
	}

	shift := 8 * Offset(addr)

	switch kind {
	case LoadByte:
		return uint32(int32(int8(raw >> shift))), nil
	case LoadByteUnsigned:
		return (raw >> shift) & 0xFF, nil
	case LoadHalf:
		return uint32(int32(int16(raw >> shift))), nil
	case LoadHalfUnsigned:
		return (raw >> shift) & 0xFFFF, nil
	default:
		return raw & lanes.Mask(), nil
	}
}

// MergeLoad combines a decoded load value with the previous value of the
// destination register. For LWL and LWR the lanes the load touched come from
// loaded and every other lane keeps prior. Other kinds overwrite the whole
// register, so loaded is returned as is.
func MergeLoad(kind LoadKind, addr, loaded, prior uint32) (uint32, error) {
	lanes, err := LoadLanes(kind, addr)
	if err != nil {
		return 0, err
	}

	if !kind.Unaligned() {
		return loaded, nil
	}

	m := lanes.Mask()
	return loaded&m | prior&^m, nil
}

// EncodeStore returns raw, the aligned word containing addr, with the lanes
// a store of the given kind writes replaced by value. Lanes outside the store
// are never touched.
//
// SB and SH place the low byte or halfword of value in the addressed lane.
// SWL writes lanes at and above the offset with value shifted up by the
// offset; SWR writes lanes up to and including the offset with the high
// bytes of value.
func EncodeStore(kind StoreKind, addr, raw, value uint32) (uint32, error) {
	lanes, err := StoreLanes(kind, addr)
	if err != nil {
		return 0, err
	}

	off := Offset(addr)

	var data uint32
	switch kind {
	case StoreWord:
		data = value
	case StoreByte, StoreHalf, StoreWordLeft:
		data = value << (8 * off)
	case StoreWordRight:
		data = value >> (8 * (3 - off))
	}

	m := lanes.Mask()
	return raw&^m | data&m, nil
}
