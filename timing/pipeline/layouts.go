package pipeline

import (
	"fmt"

	"github.com/sarchlab/mipsim/bus"
)

// minField is a field a stage reads or writes and the fewest bits that
// hold every value the stage puts on it.
type minField struct {
	name  string
	width int
}

// requiredFields lists the fields each stage reads or writes.
var requiredFields = map[bus.Name][]minField{
	bus.BrBus:  {{bus.FieldBrStall, 1}, {bus.FieldBrTaken, 1}, {bus.FieldBrTarget, 32}},
	bus.FSToDS: {{bus.FieldInst, 32}, {bus.FieldPC, 32}},
	bus.DSToES: {
		{bus.FieldALUOp, 12}, {bus.FieldMemKind, 3},
		{bus.FieldSrc1IsSA, 1}, {bus.FieldSrc1IsPC, 1},
		{bus.FieldSrc2IsImm, 1}, {bus.FieldSrc2IsZImm, 1}, {bus.FieldSrc2Is8, 1},
		{bus.FieldResFromMem, 1}, {bus.FieldGRWE, 1}, {bus.FieldMemWE, 1},
		{bus.FieldOverflowEn, 1}, {bus.FieldSyscall, 1},
		{bus.FieldRs, 5}, {bus.FieldRt, 5}, {bus.FieldDest, 5}, {bus.FieldImm, 16},
		{bus.FieldRsValue, 32}, {bus.FieldRtValue, 32}, {bus.FieldPC, 32},
	},
	bus.ESToMS: {
		{bus.FieldMemKind, 3}, {bus.FieldResFromMem, 1}, {bus.FieldMemWE, 1},
		{bus.FieldSyscall, 1}, {bus.FieldDest, 5}, {bus.FieldByteEn, 4},
		{bus.FieldRtValue, 32}, {bus.FieldALUResult, 32}, {bus.FieldPC, 32},
	},
	bus.MSToWS: {
		{bus.FieldGRWE, 1}, {bus.FieldDest, 5},
		{bus.FieldFinalResult, 32}, {bus.FieldPC, 32},
	},
	bus.WSToRF: {{bus.FieldRFWE, 1}, {bus.FieldRFWAddr, 5}, {bus.FieldRFWData, 32}},
	bus.ESToDS: {{bus.FieldLoadOp, 1}, {bus.FieldDest, 5}, {bus.FieldResult, 32}},
	bus.MSToDS: {{bus.FieldDest, 5}, {bus.FieldResult, 32}},
}

// layouts holds the resolved layout of every bus.
type layouts map[bus.Name]*bus.Layout

// CheckLayouts reports whether a registry declares every field the stages use,
// each wide enough for the values driven onto it. A narrower field would be
// truncated by Payload.Set, so it is a bus.ErrWidthMismatch even when the
// layout still adds up to the bus width.
func CheckLayouts(r *bus.Registry) error {
	_, err := resolveLayouts(r)
	return err
}

func resolveLayouts(r *bus.Registry) (layouts, error) {
	ls := make(layouts, len(requiredFields))

	for _, name := range bus.Names() {
		l, err := r.Layout(name)
		if err != nil {
			return nil, err
		}

		for _, req := range requiredFields[name] {
			f, ok := l.Field(req.name)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no field %q", bus.ErrInvalidField, name, req.name)
			}
			if f.Width < req.width {
				return nil, fmt.Errorf("%w: %s.%s is %d bits, needs %d",
					bus.ErrWidthMismatch, name, req.name, f.Width, req.width)
			}
		}

		ls[name] = l
	}

	return ls, nil
}

// latch is a pipeline register: the bus payload and its valid bit.
type latch struct {
	valid   bool
	payload bus.Payload
}
