package pipeline

// ForwardSource indicates where a decode operand came from.
type ForwardSource int

const (
	// ForwardNone means the register file value is used.
	ForwardNone ForwardSource = iota
	// ForwardFromES means the value came from the ES_TO_DS bus.
	ForwardFromES
	// ForwardFromMS means the value came from the MS_TO_DS bus.
	ForwardFromMS
)

// HazardUnit resolves read-after-write hazards at decode, where operands
// are read and branches resolve.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// Forward returns the newest value of reg. The execute stage holds a younger
// result than the memory stage, so it wins. $zero is never forwarded.
func (h *HazardUnit) Forward(reg uint8, value uint32, es ESToDS, ms MSToDS) (uint32, ForwardSource) {
	if reg == 0 {
		return value, ForwardNone
	}

	if es.Dest == reg {
		return es.Result, ForwardFromES
	}

	if ms.Dest == reg {
		return ms.Result, ForwardFromMS
	}

	return value, ForwardNone
}

// LoadUse reports whether the instruction in decode needs the result of a
// load still in execute. Such a value cannot be forwarded in time, so decode
// must stall one cycle.
func (h *HazardUnit) LoadUse(es ESToDS, rs, rt uint8, usesRs, usesRt bool) bool {
	if !es.LoadOp || es.Dest == 0 {
		return false
	}

	return (usesRs && rs == es.Dest) || (usesRt && rt == es.Dest)
}
