package protocol

import (
	"fmt"

	"github.com/cloudia/cloudia/internal/bitstream"
)

// Channel names used by the stock temperature/humidity sensor
const (
	ChannelTemperature = "T"
	ChannelHumidity    = "H"
)

// DiffWidthUnset marks a descriptor whose diff width has not been read from a
// frame header yet.
const DiffWidthUnset = -1

// VariableDescriptor describes how one measurement channel is packed.
type VariableDescriptor struct {
	Name      string  // Channel name ("T", "H")
	BaseWidth int     // Magnitude bits of an absolute value
	DiffWidth int     // Magnitude bits of a delta (DiffWidthUnset until known)
	Signed    bool    // Absolute value carries a sign bit
	Scale     float64 // Physical value = raw * Scale
	Min       float64 // Plausible physical range, inclusive
	Max       float64
}

// Validate checks the descriptor for programming errors.
func (v VariableDescriptor) Validate() error {
	switch {
	case v.Name == "":
		return newError(ErrTypeInvalidSchema, 0, "channel without a name")
	case v.BaseWidth < 1 || v.BaseWidth > bitstream.MaxWidth:
		return newError(ErrTypeInvalidSchema, 0, "channel %s: base width %d out of range 1-%d", v.Name, v.BaseWidth, bitstream.MaxWidth)
	case v.DiffWidth > MaxDiffWidth:
		return newError(ErrTypeInvalidSchema, 0, "channel %s: diff width %d exceeds %d", v.Name, v.DiffWidth, MaxDiffWidth)
	case v.Scale == 0:
		return newError(ErrTypeInvalidSchema, 0, "channel %s: zero scale", v.Name)
	case v.Min > v.Max:
		return newError(ErrTypeInvalidSchema, 0, "channel %s: min %g above max %g", v.Name, v.Min, v.Max)
	}
	return nil
}

// Physical converts a raw integer into the channel's physical unit.
func (v VariableDescriptor) Physical(raw int64) float64 {
	return float64(raw) * v.Scale
}

// InRange reports whether a physical value lies inside [Min, Max].
func (v VariableDescriptor) InRange(value float64) bool {
	return value >= v.Min && value <= v.Max
}

// String returns a compact description such as "T(s10,d1,x0.1)".
func (v VariableDescriptor) String() string {
	sign := "u"
	if v.Signed {
		sign = "s"
	}
	diff := "?"
	if v.DiffWidth != DiffWidthUnset {
		diff = fmt.Sprint(v.DiffWidth)
	}
	return fmt.Sprintf("%s(%s%d,d%s,x%g)", v.Name, sign, v.BaseWidth, diff, v.Scale)
}

// Schema is an ordered, immutable list of channel descriptors. Channels are
// packed in schema order within every epoch.
type Schema struct {
	vars []VariableDescriptor
}

// NewSchema validates and copies vars into a new schema. Diff widths are
// reset to DiffWidthUnset.
func NewSchema(vars ...VariableDescriptor) (Schema, error) {
	s := Schema{vars: make([]VariableDescriptor, len(vars))}
	copy(s.vars, vars)
	for i := range s.vars {
		s.vars[i].DiffWidth = DiffWidthUnset
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// DefaultSchema returns the stock sensor layout: temperature in tenths of a
// degree (signed, 10 bits) followed by relative humidity in percent
// (unsigned, 7 bits).
func DefaultSchema() Schema {
	return Schema{vars: []VariableDescriptor{
		{
			Name:      ChannelTemperature,
			BaseWidth: 10,
			DiffWidth: DiffWidthUnset,
			Signed:    true,
			Scale:     0.1,
			Min:       -100,
			Max:       100,
		},
		{
			Name:      ChannelHumidity,
			BaseWidth: 7,
			DiffWidth: DiffWidthUnset,
			Signed:    false,
			Scale:     1,
			Min:       0,
			Max:       100,
		},
	}}
}

// Validate checks every descriptor and rejects empty schemas and duplicate
// channel names.
func (s Schema) Validate() error {
	if len(s.vars) == 0 {
		return newError(ErrTypeInvalidSchema, 0, "schema has no channels")
	}
	seen := make(map[string]bool, len(s.vars))
	for _, v := range s.vars {
		if err := v.Validate(); err != nil {
			return err
		}
		if seen[v.Name] {
			return newError(ErrTypeInvalidSchema, 0, "duplicate channel %s", v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// Len returns the number of channels.
func (s Schema) Len() int {
	return len(s.vars)
}

// Variable returns the i-th descriptor.
func (s Schema) Variable(i int) VariableDescriptor {
	return s.vars[i]
}

// Variables returns a copy of all descriptors in packing order.
func (s Schema) Variables() []VariableDescriptor {
	out := make([]VariableDescriptor, len(s.vars))
	copy(out, s.vars)
	return out
}

// Index returns the position of the named channel, or -1.
func (s Schema) Index(name string) int {
	for i, v := range s.vars {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the channel names in packing order.
func (s Schema) Names() []string {
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.Name
	}
	return names
}

// WithDiffWidths returns a copy of the schema carrying the given per-channel
// diff widths. The receiver is left untouched. Missing widths stay unset.
func (s Schema) WithDiffWidths(widths []int) Schema {
	out := Schema{vars: make([]VariableDescriptor, len(s.vars))}
	copy(out.vars, s.vars)
	for i := range out.vars {
		if i < len(widths) {
			out.vars[i].DiffWidth = widths[i]
		} else {
			out.vars[i].DiffWidth = DiffWidthUnset
		}
	}
	return out
}

// BaseEpochBits returns the size of an epoch of absolute values.
func (s Schema) BaseEpochBits() int {
	total := 0
	for _, v := range s.vars {
		total += bitstream.FieldBits(v.BaseWidth, v.Signed)
	}
	return total
}

// DiffEpochBits returns the size of an epoch of deltas. Deltas always carry
// a sign bit unless their width is zero.
func (s Schema) DiffEpochBits() int {
	total := 0
	for _, v := range s.vars {
		total += bitstream.FieldBits(v.DiffWidth, true)
	}
	return total
}
