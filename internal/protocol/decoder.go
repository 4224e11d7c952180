package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudia/cloudia/internal/bitstream"
	"github.com/cloudia/cloudia/internal/logging"
	"go.uber.org/zap"
)

// Sample is one decoded channel value within an epoch.
type Sample struct {
	Name    string
	Raw     int64   // Absolute integer value after diff reconstruction
	Value   float64 // Raw * Scale
	InRange bool    // Value within the channel's [Min, Max]
}

// Epoch is one sampling instant. Index 0 is the most recent measurement.
type Epoch struct {
	Index   int
	Time    time.Time
	Samples []Sample
}

// Sample returns the named channel's sample.
func (e Epoch) Sample(name string) (Sample, bool) {
	for _, s := range e.Samples {
		if s.Name == name {
			return s, true
		}
	}
	return Sample{}, false
}

// Value returns the named channel's physical value.
func (e Epoch) Value(name string) (float64, bool) {
	s, ok := e.Sample(name)
	return s.Value, ok
}

func (e Epoch) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", e.Index, e.Time.UTC().Format(time.RFC3339))
	for _, s := range e.Samples {
		fmt.Fprintf(&b, " %s=%g", s.Name, s.Value)
		if !s.InRange {
			b.WriteString("!")
		}
	}
	return b.String()
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithSchema replaces the default channel schema.
func WithSchema(s Schema) Option {
	return func(d *Decoder) {
		d.schema = s
	}
}

// WithLogger sets the logger used for out-of-range warnings and debug
// traces. Defaults to the package-wide logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// WithClock sets the time source used when a zero receipt time is passed to
// Decode.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) {
		d.now = now
	}
}

// Decoder turns uplink payloads into epochs. A Decoder holds no per-payload
// state and is safe for concurrent use.
type Decoder struct {
	schema Schema
	logger *zap.Logger
	now    func() time.Time
}

// NewDecoder creates a decoder for the default schema unless overridden.
func NewDecoder(opts ...Option) (*Decoder, error) {
	d := &Decoder{
		schema: DefaultSchema(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.GetLogger()
	}
	if err := d.schema.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Schema returns the decoder's base schema.
func (d *Decoder) Schema() Schema {
	return d.schema
}

// Decode parses the header of payload and returns a cursor over its epochs.
// Header problems are returned as a *CodecError before any epoch is
// produced. receipt anchors epoch timestamps; a zero receipt uses the
// decoder's clock.
func (d *Decoder) Decode(port Port, payload []byte, receipt time.Time) (*EpochCursor, error) {
	header, err := ParseHeader(port, payload, d.schema.Len())
	if err != nil {
		return nil, err
	}

	schema := d.schema
	if header.DiffWidths != nil {
		schema = d.schema.WithDiffWidths(header.DiffWidths)
	}
	if receipt.IsZero() {
		receipt = d.now()
	}

	d.logger.Debug("Decoding uplink",
		zap.Stringer("header", header),
		zap.Int("body_bits", (len(payload)-header.Size)*8),
	)

	return &EpochCursor{
		header:  header,
		schema:  schema,
		reader:  bitstream.NewReader(payload[header.Size:]),
		recon:   NewDiffReconstructor(schema.Len()),
		receipt: receipt,
		logger:  d.logger,
	}, nil
}

// DecodeAll drains a cursor into a slice.
func (d *Decoder) DecodeAll(port Port, payload []byte, receipt time.Time) ([]Epoch, *FrameHeader, error) {
	cur, err := d.Decode(port, payload, receipt)
	if err != nil {
		return nil, nil, err
	}
	var epochs []Epoch
	for cur.Advance() {
		epochs = append(epochs, cur.Epoch())
	}
	return epochs, cur.Header(), nil
}

// EpochCursor yields the epochs of one payload in order, most recent first.
// Decoding stops cleanly once the remaining bits cannot hold a full epoch;
// trailing padding is never an error.
type EpochCursor struct {
	header  *FrameHeader
	schema  Schema
	reader  *bitstream.Reader
	recon   *DiffReconstructor
	receipt time.Time
	logger  *zap.Logger

	index      int
	current    Epoch
	done       bool
	outOfRange int
}

// Advance decodes the next epoch. It returns false once the payload is
// exhausted, after which Epoch returns the zero value.
func (c *EpochCursor) Advance() bool {
	if c.done {
		return false
	}

	need := c.epochBits(c.index)
	if need == 0 || need > c.reader.Remaining() {
		c.done = true
		c.current = Epoch{}
		if rem := c.reader.Remaining(); rem > 0 {
			byteOff, bitOff := c.reader.Cursor()
			c.logger.Debug("Ignoring trailing bits",
				zap.Int("bits", rem),
				zap.Int("epochs", c.index),
				zap.Int("byte", c.header.Size+byteOff),
				zap.Int("bit", bitOff),
			)
		}
		return false
	}

	raw := make([]int64, c.schema.Len())
	for i := range raw {
		width, signed := c.fieldLayout(c.index, c.schema.Variable(i))
		raw[i] = bitstream.ReadField(c.reader, width, signed)
	}

	values := raw
	if c.header.DiffWidths != nil {
		values = c.recon.Apply(raw)
	}

	samples := make([]Sample, len(values))
	for i, v := range values {
		desc := c.schema.Variable(i)
		s := Sample{
			Name:  desc.Name,
			Raw:   v,
			Value: desc.Physical(v),
		}
		s.InRange = desc.InRange(s.Value)
		if !s.InRange {
			c.outOfRange++
			c.logger.Warn("Decoded value out of range",
				zap.String("channel", desc.Name),
				zap.Int64("raw", v),
				zap.Float64("value", s.Value),
				zap.Float64("min", desc.Min),
				zap.Float64("max", desc.Max),
				zap.Int("epoch", c.index),
				zap.Stringer("port", c.header.Port),
			)
		}
		samples[i] = s
	}

	c.current = Epoch{
		Index:   c.index,
		Time:    c.receipt.Add(-time.Duration(c.index) * c.header.Period),
		Samples: samples,
	}
	c.index++
	return true
}

// Epoch returns the epoch produced by the last successful Advance.
func (c *EpochCursor) Epoch() Epoch {
	return c.current
}

// Done reports whether the cursor is exhausted.
func (c *EpochCursor) Done() bool {
	return c.done
}

// Header returns the parsed frame header.
func (c *EpochCursor) Header() *FrameHeader {
	return c.header
}

// Schema returns the schema in effect for this payload, diff widths included.
func (c *EpochCursor) Schema() Schema {
	return c.schema
}

// Count returns how many epochs have been produced.
func (c *EpochCursor) Count() int {
	return c.index
}

// OutOfRange returns how many samples fell outside their plausible range.
func (c *EpochCursor) OutOfRange() int {
	return c.outOfRange
}

// ConsumedBits returns the number of payload bits read, header included.
func (c *EpochCursor) ConsumedBits() int {
	return c.header.Size*8 + c.reader.Consumed()
}

// epochBits returns the size of epoch i.
func (c *EpochCursor) epochBits(i int) int {
	if i > 0 && c.header.DiffWidths != nil {
		return c.schema.DiffEpochBits()
	}
	return c.schema.BaseEpochBits()
}

// fieldLayout returns the width and signedness of a channel in epoch i.
func (c *EpochCursor) fieldLayout(i int, v VariableDescriptor) (int, bool) {
	if i > 0 && c.header.DiffWidths != nil {
		return v.DiffWidth, true
	}
	return v.BaseWidth, v.Signed
}
