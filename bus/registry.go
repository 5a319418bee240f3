// Package bus describes the fixed-width signal bundles that connect the
// stages of the 5-stage pipeline.
//
// Every bus has a total width that never changes. A Registry holds these
// widths together with the field layouts that producers and consumers agree
// on. A layout whose fields do not add up to the bus width is rejected, so a
// disagreement between two stages surfaces when the registry is built rather
// than while cycles are running.
//
// Usage:
//
//	reg := bus.NewDefaultRegistry()
//	layout := reg.MustLayout(bus.FSToDS)
//	p := bus.NewPayload(layout)
//	p.Set("pc", 0xbfc00000)
package bus

import (
	"errors"
	"fmt"
)

// Name identifies a bus.
type Name string

// The buses of the pipeline.
const (
	BrBus  Name = "BR_BUS"   // Decode -> Fetch, branch redirect
	FSToDS Name = "FS_TO_DS" // Fetch -> Decode
	DSToES Name = "DS_TO_ES" // Decode -> Execute
	ESToMS Name = "ES_TO_MS" // Execute -> Memory
	MSToWS Name = "MS_TO_WS" // Memory -> Write-back
	WSToRF Name = "WS_TO_RF" // Write-back -> Register file
	ESToDS Name = "ES_TO_DS" // Execute -> Decode, forwarding
	MSToDS Name = "MS_TO_DS" // Memory -> Decode, forwarding
)

// Widths of every bus in bits.
const (
	BrBusWidth  = 34
	FSToDSWidth = 64
	DSToESWidth = 152
	ESToMSWidth = 111
	MSToWSWidth = 70
	WSToRFWidth = 38
	ESToDSWidth = 38
	MSToDSWidth = 37
)

// MaxFieldWidth is the widest single field a layout may declare.
const MaxFieldWidth = 64

var (
	// ErrUnknownBus is returned when a bus name is not one of the eight buses.
	ErrUnknownBus = errors.New("unknown bus")
	// ErrWidthMismatch is returned when the fields of a layout do not add up
	// to the width of its bus.
	ErrWidthMismatch = errors.New("bus width mismatch")
	// ErrInvalidField is returned for empty, duplicate, zero-width or
	// over-wide fields.
	ErrInvalidField = errors.New("invalid bus field")
	// ErrFrozen is returned when a layout is declared on a frozen registry.
	ErrFrozen = errors.New("bus registry is frozen")
	// ErrNoLayout is returned when a known bus has no declared layout.
	ErrNoLayout = errors.New("no layout declared")
)

// Field is one named sub-field of a bus.
type Field struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

// Registry holds the width of every bus and the layouts declared for them.
type Registry struct {
	widths  map[Name]int
	layouts map[Name]*Layout
	frozen  bool
}

// NewRegistry creates a registry that knows the width of every bus but has
// no layouts declared yet.
func NewRegistry() *Registry {
	return &Registry{
		widths: map[Name]int{
			BrBus:  BrBusWidth,
			FSToDS: FSToDSWidth,
			DSToES: DSToESWidth,
			ESToMS: ESToMSWidth,
			MSToWS: MSToWSWidth,
			WSToRF: WSToRFWidth,
			ESToDS: ESToDSWidth,
			MSToDS: MSToDSWidth,
		},
		layouts: make(map[Name]*Layout),
	}
}

// NewDefaultRegistry creates a frozen registry holding the default layout of
// every bus.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := r.DeclareDefaults(); err != nil {
		panic(err)
	}
	r.Freeze()
	return r
}

// WidthOf returns the total width of a bus in bits.
func (r *Registry) WidthOf(name Name) (int, error) {
	w, ok := r.widths[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBus, name)
	}
	return w, nil
}

// DeclareLayout declares the ordered fields of a bus. The first field is the
// most significant; the last one sits at bit 0. Declaring a bus again
// replaces its previous layout until the registry is frozen.
func (r *Registry) DeclareLayout(name Name, fields []Field) error {
	if r.frozen {
		return fmt.Errorf("%w: cannot declare %s", ErrFrozen, name)
	}

	width, err := r.WidthOf(name)
	if err != nil {
		return err
	}

	layout, err := newLayout(name, width, fields)
	if err != nil {
		return err
	}

	r.layouts[name] = layout
	return nil
}

// DeclareDefaults declares the default layout of every bus.
func (r *Registry) DeclareDefaults() error {
	for _, name := range Names() {
		if err := r.DeclareLayout(name, DefaultFields(name)); err != nil {
			return err
		}
	}
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Frozen reports whether the registry is read-only.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Layout returns the declared layout of a bus.
func (r *Registry) Layout(name Name) (*Layout, error) {
	if _, err := r.WidthOf(name); err != nil {
		return nil, err
	}

	layout, ok := r.layouts[name]
	if !ok {
		return nil, fmt.Errorf("%w for bus %s", ErrNoLayout, name)
	}
	return layout, nil
}

// MustLayout is like Layout but panics on error.
func (r *Registry) MustLayout(name Name) *Layout {
	layout, err := r.Layout(name)
	if err != nil {
		panic(err)
	}
	return layout
}

// Names returns the names of every bus in pipeline order.
func Names() []Name {
	return []Name{BrBus, FSToDS, DSToES, ESToMS, MSToWS, WSToRF, ESToDS, MSToDS}
}

// Layout is the ordered field description of one bus.
type Layout struct {
	name    Name
	width   int
	fields  []Field
	offsets map[string]int
	index   map[string]int
}

func newLayout(name Name, width int, fields []Field) (*Layout, error) {
	l := &Layout{
		name:    name,
		width:   width,
		fields:  append([]Field(nil), fields...),
		offsets: make(map[string]int, len(fields)),
		index:   make(map[string]int, len(fields)),
	}

	sum := 0
	for i, f := range fields {
		switch {
		case f.Name == "":
			return nil, fmt.Errorf("%w: %s field %d has no name", ErrInvalidField, name, i)
		case f.Width <= 0 || f.Width > MaxFieldWidth:
			return nil, fmt.Errorf("%w: %s.%s has width %d", ErrInvalidField, name, f.Name, f.Width)
		}
		if _, dup := l.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s.%s declared twice", ErrInvalidField, name, f.Name)
		}
		l.index[f.Name] = i
		sum += f.Width
	}

	if sum != width {
		return nil, fmt.Errorf("%w: %s fields sum to %d bits, bus is %d",
			ErrWidthMismatch, name, sum, width)
	}

	offset := 0
	for i := len(fields) - 1; i >= 0; i-- {
		l.offsets[fields[i].Name] = offset
		offset += fields[i].Width
	}

	return l, nil
}

// Name returns the bus name.
func (l *Layout) Name() Name { return l.name }

// Width returns the total width of the bus in bits.
func (l *Layout) Width() int { return l.width }

// Fields returns a copy of the ordered fields.
func (l *Layout) Fields() []Field {
	return append([]Field(nil), l.fields...)
}

// Field returns the named field.
func (l *Layout) Field(name string) (Field, bool) {
	i, ok := l.index[name]
	if !ok {
		return Field{}, false
	}
	return l.fields[i], true
}

// Offset returns the bit position of the least significant bit of a field.
func (l *Layout) Offset(name string) (int, bool) {
	off, ok := l.offsets[name]
	return off, ok
}
