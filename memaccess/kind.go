// Package memaccess is the load/store subtype codec. Given an access kind,
// a byte address and the aligned memory word containing that address, it
// decides which byte lanes an access touches, extracts and extends loaded
// values, and merges store data into the word.
//
// All functions are pure and safe to call from any goroutine.
package memaccess

import (
	"errors"
	"fmt"
)

var (
	// ErrAlignmentFault is returned when an address does not satisfy the
	// alignment the access width requires, or when an explicit lane offset
	// lies outside 0-3.
	ErrAlignmentFault = errors.New("alignment fault")
	// ErrUnknownKind is returned for an access kind tag outside the closed
	// set of loads or stores.
	ErrUnknownKind = errors.New("unknown memory access kind")
)

// LoadKind is the 3-bit access tag of a load instruction.
type LoadKind uint8

// Load kinds.
const (
	LoadWord         LoadKind = 0b000 // LW
	LoadByte         LoadKind = 0b001 // LB
	LoadByteUnsigned LoadKind = 0b010 // LBU
	LoadHalf         LoadKind = 0b011 // LH
	LoadHalfUnsigned LoadKind = 0b100 // LHU
	LoadWordLeft     LoadKind = 0b101 // LWL
	LoadWordRight    LoadKind = 0b110 // LWR
)

// StoreKind is the 3-bit access tag of a store instruction.
type StoreKind uint8

// Store kinds. Codes 0b010, 0b100 and 0b111 are unused.
const (
	StoreWord      StoreKind = 0b000 // SW
	StoreByte      StoreKind = 0b001 // SB
	StoreHalf      StoreKind = 0b011 // SH
	StoreWordLeft  StoreKind = 0b101 // SWL
	StoreWordRight StoreKind = 0b110 // SWR
)

var loadNames = map[LoadKind]string{
	LoadWord:         "LW",
	LoadByte:         "LB",
	LoadByteUnsigned: "LBU",
	LoadHalf:         "LH",
	LoadHalfUnsigned: "LHU",
	LoadWordLeft:     "LWL",
	LoadWordRight:    "LWR",
}

var storeNames = map[StoreKind]string{
	StoreWord:      "SW",
	StoreByte:      "SB",
	StoreHalf:      "SH",
	StoreWordLeft:  "SWL",
	StoreWordRight: "SWR",
}

// ParseLoadKind decodes a 3-bit load tag.
func ParseLoadKind(code uint8) (LoadKind, error) {
	k := LoadKind(code)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: load tag %03b", ErrUnknownKind, code)
	}
	return k, nil
}

// ParseStoreKind decodes a 3-bit store tag.
func ParseStoreKind(code uint8) (StoreKind, error) {
	k := StoreKind(code)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: store tag %03b", ErrUnknownKind, code)
	}
	return k, nil
}

// Valid reports whether k is one of the load kinds.
func (k LoadKind) Valid() bool {
	_, ok := loadNames[k]
	return ok
}

// Code returns the 3-bit tag.
func (k LoadKind) Code() uint8 { return uint8(k) }

// Unaligned reports whether k is LWL or LWR.
func (k LoadKind) Unaligned() bool {
	return k == LoadWordLeft || k == LoadWordRight
}

func (k LoadKind) String() string {
	if name, ok := loadNames[k]; ok {
		return name
	}
	return fmt.Sprintf("LoadKind(%d)", uint8(k))
}

// Valid reports whether k is one of the store kinds.
func (k StoreKind) Valid() bool {
	_, ok := storeNames[k]
	return ok
}

// Code returns the 3-bit tag.
func (k StoreKind) Code() uint8 { return uint8(k) }

// Unaligned reports whether k is SWL or SWR.
func (k StoreKind) Unaligned() bool {
	return k == StoreWordLeft || k == StoreWordRight
}

func (k StoreKind) String() string {
	if name, ok := storeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StoreKind(%d)", uint8(k))
}
