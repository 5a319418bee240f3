// Package pipeline provides a 5-stage MIPS pipeline whose stages talk only
// through fixed-width buses.
package pipeline

import (
	"github.com/sarchlab/mipsim/bus"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/memaccess"
)

// The Valid flags of the pipeline registers travel beside their buses as
// separate handshake bits and are never packed.

// BranchBus carries the decode stage's redirect to fetch.
type BranchBus struct {
	Stall  bool
	Taken  bool
	Target uint32
}

// Pack encodes the bus.
func (b BranchBus) Pack(l *bus.Layout) bus.Payload {
	return bus.NewPayload(l).
		SetBool(bus.FieldBrStall, b.Stall).
		SetBool(bus.FieldBrTaken, b.Taken).
		Set(bus.FieldBrTarget, uint64(b.Target))
}

// UnpackBranchBus decodes a BR_BUS payload.
func UnpackBranchBus(p bus.Payload) BranchBus {
	return BranchBus{
		Stall:  p.Bool(bus.FieldBrStall),
		Taken:  p.Bool(bus.FieldBrTaken),
		Target: p.Uint32(bus.FieldBrTarget),
	}
}

// FSToDS holds state between Fetch and Decode stages.
type FSToDS struct {
	Valid bool
	Inst  uint32
	PC    uint32
}

// Pack encodes the register.
func (r FSToDS) Pack(l *bus.Layout) bus.Payload {
	return bus.NewPayload(l).
		Set(bus.FieldInst, uint64(r.Inst)).
		Set(bus.FieldPC, uint64(r.PC))
}

// UnpackFSToDS decodes an FS_TO_DS payload.
func UnpackFSToDS(p bus.Payload) FSToDS {
	return FSToDS{
		Inst: p.Uint32(bus.FieldInst),
		PC:   p.Uint32(bus.FieldPC),
	}
}

// DSToES holds state between Decode and Execute stages.
type DSToES struct {
	Valid bool

	// Ctrl holds the control signals carried on the bus. UsesRs, UsesRt and
	// IsControl are decode-local and do not survive a round trip.
	Ctrl insts.Controls

	Rs      uint8
	Rt      uint8
	Imm     uint16
	RsValue uint32
	RtValue uint32
	PC      uint32
}

// Pack encodes the register.
func (r DSToES) Pack(l *bus.Layout) bus.Payload {
	c := r.Ctrl
	return bus.NewPayload(l).
		Set(bus.FieldALUOp, uint64(c.ALUOp)).
		Set(bus.FieldMemKind, uint64(c.MemKind)).
		SetBool(bus.FieldSrc1IsSA, c.Src1IsSA).
		SetBool(bus.FieldSrc1IsPC, c.Src1IsPC).
		SetBool(bus.FieldSrc2IsImm, c.Src2IsImm).
		SetBool(bus.FieldSrc2IsZImm, c.Src2IsZImm).
		SetBool(bus.FieldSrc2Is8, c.Src2Is8).
		SetBool(bus.FieldResFromMem, c.ResFromMem).
		SetBool(bus.FieldGRWE, c.GRWE).
		SetBool(bus.FieldMemWE, c.MemWE).
		SetBool(bus.FieldOverflowEn, c.OverflowEn).
		SetBool(bus.FieldSyscall, c.IsSyscall).
		Set(bus.FieldRs, uint64(r.Rs)).
		Set(bus.FieldRt, uint64(r.Rt)).
		Set(bus.FieldDest, uint64(c.Dest)).
		Set(bus.FieldImm, uint64(r.Imm)).
		Set(bus.FieldRsValue, uint64(r.RsValue)).
		Set(bus.FieldRtValue, uint64(r.RtValue)).
		Set(bus.FieldPC, uint64(r.PC))
}

// UnpackDSToES decodes a DS_TO_ES payload.
func UnpackDSToES(p bus.Payload) DSToES {
	return DSToES{
		Ctrl: insts.Controls{
			ALUOp:      insts.ALUOp(p.Get(bus.FieldALUOp)),
			MemKind:    p.Uint8(bus.FieldMemKind),
			Src1IsSA:   p.Bool(bus.FieldSrc1IsSA),
			Src1IsPC:   p.Bool(bus.FieldSrc1IsPC),
			Src2IsImm:  p.Bool(bus.FieldSrc2IsImm),
			Src2IsZImm: p.Bool(bus.FieldSrc2IsZImm),
			Src2Is8:    p.Bool(bus.FieldSrc2Is8),
			ResFromMem: p.Bool(bus.FieldResFromMem),
			GRWE:       p.Bool(bus.FieldGRWE),
			MemWE:      p.Bool(bus.FieldMemWE),
			OverflowEn: p.Bool(bus.FieldOverflowEn),
			IsSyscall:  p.Bool(bus.FieldSyscall),
			Dest:       p.Uint8(bus.FieldDest),
		},
		Rs:      p.Uint8(bus.FieldRs),
		Rt:      p.Uint8(bus.FieldRt),
		Imm:     uint16(p.Get(bus.FieldImm)),
		RsValue: p.Uint32(bus.FieldRsValue),
		RtValue: p.Uint32(bus.FieldRtValue),
		PC:      p.Uint32(bus.FieldPC),
	}
}

// ESToMS holds state between Execute and Memory stages. A zero Dest means
// no register write.
type ESToMS struct {
	Valid      bool
	MemKind    uint8
	ResFromMem bool
	MemWE      bool
	Syscall    bool
	Dest       uint8
	ByteEn     memaccess.Lanes
	RtValue    uint32
	ALUResult  uint32
	PC         uint32
}

// Pack encodes the register.
func (r ESToMS) Pack(l *bus.Layout) bus.Payload {
	return bus.NewPayload(l).
		Set(bus.FieldMemKind, uint64(r.MemKind)).
		SetBool(bus.FieldResFromMem, r.ResFromMem).
		SetBool(bus.FieldMemWE, r.MemWE).
		SetBool(bus.FieldSyscall, r.Syscall).
		Set(bus.FieldDest, uint64(r.Dest)).
		Set(bus.FieldByteEn, uint64(r.ByteEn)).
		Set(bus.FieldRtValue, uint64(r.RtValue)).
		Set(bus.FieldALUResult, uint64(r.ALUResult)).
		Set(bus.FieldPC, uint64(r.PC))
}

// UnpackESToMS decodes an ES_TO_MS payload.
func UnpackESToMS(p bus.Payload) ESToMS {
	return ESToMS{
		MemKind:    p.Uint8(bus.FieldMemKind),
		ResFromMem: p.Bool(bus.FieldResFromMem),
		MemWE:      p.Bool(bus.FieldMemWE),
		Syscall:    p.Bool(bus.FieldSyscall),
		Dest:       p.Uint8(bus.FieldDest),
		ByteEn:     memaccess.Lanes(p.Get(bus.FieldByteEn)),
		RtValue:    p.Uint32(bus.FieldRtValue),
		ALUResult:  p.Uint32(bus.FieldALUResult),
		PC:         p.Uint32(bus.FieldPC),
	}
}

// MSToWS holds state between Memory and Writeback stages.
type MSToWS struct {
	Valid       bool
	GRWE        bool
	Dest        uint8
	FinalResult uint32
	PC          uint32
}

// Pack encodes the register.
func (r MSToWS) Pack(l *bus.Layout) bus.Payload {
	return bus.NewPayload(l).
		SetBool(bus.FieldGRWE, r.GRWE).
		Set(bus.FieldDest, uint64(r.Dest)).
		Set(bus.FieldFinalResult, uint64(r.FinalResult)).
		Set(bus.FieldPC, uint64(r.PC))
}

// UnpackMSToWS decodes an MS_TO_WS payload.
func UnpackMSToWS(p bus.Payload) MSToWS {
	return MSToWS{
		GRWE:        p.Bool(bus.FieldGRWE),
		Dest:        p.Uint8(bus.FieldDest),
		FinalResult: p.Uint32(bus.FieldFinalResult),
		PC:          p.Uint32(bus.FieldPC),
	}
}

// WSToRF is the register file write port.
type WSToRF struct {
	WE   bool
	Addr uint8
	Data uint32
}

// Pack encodes the bus.
func (r WSToRF) Pack(l *bus.Layout) bus.Payload {
	return bus.NewPayload(l).
		SetBool(bus.FieldRFWE, r.WE).
		Set(bus.FieldRFWAddr, uint64(r.Addr)).
		Set(bus.FieldRFWData, uint64(r.Data))
}

// UnpackWSToRF decodes a WS_TO_RF payload.
func UnpackWSToRF(p bus.Payload) WSToRF {
	return WSToRF{
		WE:   p.Bool(bus.FieldRFWE),
		Addr: p.Uint8(bus.FieldRFWAddr),
		Data: p.Uint32(bus.FieldRFWData),
	}
}

// ESToDS forwards the execute-stage result to decode.
type ESToDS struct {
	LoadOp bool
	Dest   uint8
	Result uint32
}

// Pack encodes the bus.
func (r ESToDS) Pack(l *bus.Layout) bus.Payload {
	return bus.NewPayload(l).
		SetBool(bus.FieldLoadOp, r.LoadOp).
		Set(bus.FieldDest, uint64(r.Dest)).
		Set(bus.FieldResult, uint64(r.Result))
}

// UnpackESToDS decodes an ES_TO_DS payload.
func UnpackESToDS(p bus.Payload) ESToDS {
	return ESToDS{
		LoadOp: p.Bool(bus.FieldLoadOp),
		Dest:   p.Uint8(bus.FieldDest),
		Result: p.Uint32(bus.FieldResult),
	}
}

// MSToDS forwards the memory-stage result to decode.
type MSToDS struct {
	Dest   uint8
	Result uint32
}

// Pack encodes the bus.
func (r MSToDS) Pack(l *bus.Layout) bus.Payload {
	return bus.NewPayload(l).
		Set(bus.FieldDest, uint64(r.Dest)).
		Set(bus.FieldResult, uint64(r.Result))
}

// UnpackMSToDS decodes an MS_TO_DS payload.
func UnpackMSToDS(p bus.Payload) MSToDS {
	return MSToDS{
		Dest:   p.Uint8(bus.FieldDest),
		Result: p.Uint32(bus.FieldResult),
	}
}
