package protocol

import (
	"encoding/base64"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cloudia/cloudia/internal/bitstream"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// referencePayload is a port 90 capture from a sensor in the field.
const referencePayload = "AHeUINLp7QI="

var receipt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("bad base64 %q: %v", s, err)
	}
	return b
}

func newTestDecoder(t *testing.T, opts ...Option) *Decoder {
	t.Helper()
	d, err := NewDecoder(opts...)
	if err != nil {
		t.Fatalf("NewDecoder() error: %v", err)
	}
	return d
}

func TestDecodeReferencePayload(t *testing.T) {
	dec := newTestDecoder(t)
	epochs, header, err := dec.DecodeAll(PortMultiDiffs, mustDecode(t, referencePayload), receipt)
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}

	if header.Battery != 3.8 {
		t.Errorf("battery = %v, want 3.8", header.Battery)
	}
	if header.Period != 20*time.Second {
		t.Errorf("period = %s, want 20s", header.Period)
	}

	wantT := []int64{233, 232, 233, 232, 233, 233, 233, 233}
	if len(epochs) != len(wantT) {
		t.Fatalf("got %d epochs, want %d", len(epochs), len(wantT))
	}
	for i, ep := range epochs {
		if ep.Index != i {
			t.Errorf("epoch %d index = %d", i, ep.Index)
		}
		wantTime := receipt.Add(-time.Duration(i) * 20 * time.Second)
		if !ep.Time.Equal(wantTime) {
			t.Errorf("epoch %d time = %s, want %s", i, ep.Time, wantTime)
		}
		temp, _ := ep.Sample(ChannelTemperature)
		if temp.Raw != wantT[i] {
			t.Errorf("epoch %d T raw = %d, want %d", i, temp.Raw, wantT[i])
		}
		if math.Abs(temp.Value-float64(wantT[i])/10) > 1e-9 {
			t.Errorf("epoch %d T = %v, want %v", i, temp.Value, float64(wantT[i])/10)
		}
		hum, ok := ep.Value(ChannelHumidity)
		if !ok || hum != 61 {
			t.Errorf("epoch %d H = %v (%v), want 61", i, hum, ok)
		}
	}
}

func TestDecodeCursor(t *testing.T) {
	dec := newTestDecoder(t)
	payload := mustDecode(t, referencePayload)
	cur, err := dec.Decode(PortMultiDiffs, payload, receipt)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	n := 0
	for cur.Advance() {
		n++
		if cur.Epoch().Index != n-1 {
			t.Errorf("epoch index = %d, want %d", cur.Epoch().Index, n-1)
		}
	}
	if !cur.Done() || cur.Count() != 8 || n != 8 {
		t.Errorf("done = %v, count = %d, iterations = %d", cur.Done(), cur.Count(), n)
	}
	if cur.ConsumedBits() > len(payload)*8 {
		t.Errorf("consumed %d bits of a %d bit payload", cur.ConsumedBits(), len(payload)*8)
	}
	if cur.ConsumedBits() != len(payload)*8 {
		t.Errorf("consumed %d bits, want %d", cur.ConsumedBits(), len(payload)*8)
	}
	if cur.Advance() {
		t.Error("Advance() after exhaustion returned true")
	}
	if cur.Epoch().Samples != nil {
		t.Error("Epoch() after exhaustion is not the zero value")
	}
}

func TestDecodeTruncatedBody(t *testing.T) {
	full := mustDecode(t, referencePayload)
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"header only", 4, 0},
		{"body too short for first epoch", 6, 0},
		{"first epoch and three deltas", 7, 4},
		{"complete", 8, 8},
	}
	dec := newTestDecoder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			epochs, _, err := dec.DecodeAll(PortMultiDiffs, full[:tt.length], receipt)
			if err != nil {
				t.Fatalf("DecodeAll() error: %v", err)
			}
			if len(epochs) != tt.want {
				t.Errorf("got %d epochs, want %d", len(epochs), tt.want)
			}
		})
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	dec := newTestDecoder(t)
	payload := mustDecode(t, referencePayload)

	tests := []struct {
		name    string
		port    Port
		payload []byte
		want    error
	}{
		{"unknown port", Port(1), payload, ErrUnsupportedPort},
		{"version 2", PortMultiDiffs, append([]byte{0x00, 0xB7}, payload[2:]...), ErrUnsupportedVersion},
		{"short header", PortMultiDiffsOffset, payload[:3], ErrShortHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, err := dec.Decode(tt.port, tt.payload, receipt)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
			if cur != nil {
				t.Error("Decode() returned a cursor alongside an error")
			}
		})
	}
}

func TestDecodeSingleEpoch(t *testing.T) {
	w := bitstream.NewWriter()
	bitstream.WriteField(w, -125, 10, true)
	bitstream.WriteField(w, 40, 7, false)
	payload := append([]byte{0x00, 0x7F}, w.Bytes()...)

	dec := newTestDecoder(t)
	epochs, header, err := dec.DecodeAll(PortSingle, payload, receipt)
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}
	if header.Battery != 4.0 {
		t.Errorf("battery = %v, want 4.0", header.Battery)
	}
	if len(epochs) != 1 {
		t.Fatalf("got %d epochs, want 1", len(epochs))
	}
	temp, _ := epochs[0].Sample(ChannelTemperature)
	if temp.Raw != -125 || math.Abs(temp.Value+12.5) > 1e-9 {
		t.Errorf("T = %d (%v), want -125 (-12.5)", temp.Raw, temp.Value)
	}
	if !epochs[0].Time.Equal(receipt) {
		t.Errorf("time = %s, want receipt time", epochs[0].Time)
	}
}

func TestDecodeAbsoluteEpochs(t *testing.T) {
	raw := [][]int64{{210, 50}, {-3, 0}, {999, 100}}
	w := bitstream.NewWriter()
	for _, ep := range raw {
		bitstream.WriteField(w, ep[0], 10, true)
		bitstream.WriteField(w, ep[1], 7, false)
	}
	payload := append([]byte{0x00, 0x77, 0x41}, w.Bytes()...)

	dec := newTestDecoder(t)
	epochs, _, err := dec.DecodeAll(PortMulti, payload, receipt)
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}
	if len(epochs) != len(raw) {
		t.Fatalf("got %d epochs, want %d", len(epochs), len(raw))
	}
	for i, ep := range epochs {
		for c, s := range ep.Samples {
			if s.Raw != raw[i][c] {
				t.Errorf("epoch %d %s = %d, want %d", i, s.Name, s.Raw, raw[i][c])
			}
		}
		if want := receipt.Add(-time.Duration(i) * time.Minute); !ep.Time.Equal(want) {
			t.Errorf("epoch %d time = %s, want %s", i, ep.Time, want)
		}
	}
}

func TestDecodeZeroWidthDiffsTerminate(t *testing.T) {
	w := bitstream.NewWriter()
	bitstream.WriteField(w, 200, 10, true)
	bitstream.WriteField(w, 45, 7, false)
	payload := append([]byte{0x00, 0x77, 0x94, 0x00}, w.Bytes()...)
	payload = append(payload, 0x00, 0x00, 0x00)

	core, logs := observer.New(zap.DebugLevel)
	dec := newTestDecoder(t, WithLogger(zap.New(core)))
	epochs, _, err := dec.DecodeAll(PortMultiDiffs, payload, receipt)
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}
	if len(epochs) != 1 {
		t.Errorf("got %d epochs, want 1", len(epochs))
	}

	// 4 header bytes + 17 base bits leave the cursor at byte 6, bit 1.
	entries := logs.FilterMessage("Ignoring trailing bits").All()
	if len(entries) != 1 {
		t.Fatalf("trailing bits logged %d times, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["bits"] != int64(31) || fields["byte"] != int64(6) || fields["bit"] != int64(1) {
		t.Errorf("trailing bits fields = %v", fields)
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	w := bitstream.NewWriter()
	bitstream.WriteField(w, 1023, 10, true)
	bitstream.WriteField(w, 120, 7, false)
	payload := append([]byte{0x00, 0x77}, w.Bytes()...)

	core, logs := observer.New(zap.WarnLevel)
	dec := newTestDecoder(t, WithLogger(zap.New(core)))
	cur, err := dec.Decode(PortSingle, payload, receipt)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !cur.Advance() {
		t.Fatal("Advance() = false, want one epoch")
	}
	for _, s := range cur.Epoch().Samples {
		if s.InRange {
			t.Errorf("%s = %v flagged in range", s.Name, s.Value)
		}
	}
	if cur.OutOfRange() != 2 {
		t.Errorf("OutOfRange() = %d, want 2", cur.OutOfRange())
	}
	if n := logs.FilterMessage("Decoded value out of range").Len(); n != 2 {
		t.Errorf("logged %d out-of-range warnings, want 2", n)
	}
}

func TestDecodeUsesClockForZeroReceipt(t *testing.T) {
	dec := newTestDecoder(t, WithClock(func() time.Time { return receipt }))
	epochs, _, err := dec.DecodeAll(PortMultiDiffs, mustDecode(t, referencePayload), time.Time{})
	if err != nil {
		t.Fatalf("DecodeAll() error: %v", err)
	}
	if !epochs[0].Time.Equal(receipt) {
		t.Errorf("epoch 0 time = %s, want %s", epochs[0].Time, receipt)
	}
}

func TestDecodeLeavesSchemaUntouched(t *testing.T) {
	dec := newTestDecoder(t)
	cur, err := dec.Decode(PortMultiDiffs, mustDecode(t, referencePayload), receipt)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got := cur.Schema().Variable(0).DiffWidth; got != 1 {
		t.Errorf("cursor schema T diff width = %d, want 1", got)
	}
	for _, v := range dec.Schema().Variables() {
		if v.DiffWidth != DiffWidthUnset {
			t.Errorf("decoder schema %s diff width = %d after decode", v.Name, v.DiffWidth)
		}
	}
	if DefaultSchema().Variable(0).DiffWidth != DiffWidthUnset {
		t.Error("default schema was modified")
	}
}

func TestDecoderConcurrentUse(t *testing.T) {
	dec := newTestDecoder(t)
	payload := mustDecode(t, referencePayload)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				epochs, _, err := dec.DecodeAll(PortMultiDiffs, payload, receipt)
				if err != nil || len(epochs) != 8 {
					t.Errorf("concurrent decode: %d epochs, err %v", len(epochs), err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewDecoderRejectsBadSchema(t *testing.T) {
	_, err := NewDecoder(WithSchema(Schema{}))
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("NewDecoder(empty schema) error = %v, want ErrInvalidSchema", err)
	}
}
