package protocol

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		port    Port
		payload []byte
		wantErr error
		verify  func(t *testing.T, h *FrameHeader)
	}{
		{
			name:    "reference diff header",
			port:    PortMultiDiffs,
			payload: []byte{0x00, 0x77, 0x94, 0x20, 0xD2},
			verify: func(t *testing.T, h *FrameHeader) {
				if h.Version != 1 {
					t.Errorf("version = %d, want 1", h.Version)
				}
				if h.BatteryCode != 13 || h.Battery != 3.8 {
					t.Errorf("battery = %d (%.2fV), want 13 (3.8V)", h.BatteryCode, h.Battery)
				}
				if h.Period != 20*time.Second {
					t.Errorf("period = %s, want 20s", h.Period)
				}
				if !reflect.DeepEqual(h.DiffWidths, []int{1, 0}) {
					t.Errorf("diff widths = %v, want [1 0]", h.DiffWidths)
				}
				if h.HasOffset {
					t.Error("port 90 should not carry an offset")
				}
				if h.Size != 4 {
					t.Errorf("size = %d, want 4", h.Size)
				}
			},
		},
		{
			name:    "single epoch",
			port:    PortSingle,
			payload: []byte{0x00, 0x7F},
			verify: func(t *testing.T, h *FrameHeader) {
				if h.Battery != 4.0 {
					t.Errorf("battery = %.2f, want 4.0", h.Battery)
				}
				if h.Period != 0 || h.DiffWidths != nil {
					t.Errorf("period = %s, diffs = %v, want none", h.Period, h.DiffWidths)
				}
				if h.Size != 2 {
					t.Errorf("size = %d, want 2", h.Size)
				}
			},
		},
		{
			name:    "multi with offset",
			port:    PortMultiOffset,
			payload: []byte{0x00, 0x43, 0x45, 0x09},
			verify: func(t *testing.T, h *FrameHeader) {
				if h.Battery != 2.5 {
					t.Errorf("battery = %.2f, want 2.5", h.Battery)
				}
				if h.Period != 5*time.Minute {
					t.Errorf("period = %s, want 5m", h.Period)
				}
				if !h.HasOffset || h.Offset != 9 {
					t.Errorf("offset = %d (present %v), want 9", h.Offset, h.HasOffset)
				}
			},
		},
		{
			name:    "diffs with offset",
			port:    PortMultiDiffsOffset,
			payload: []byte{0x00, 0x77, 0x02, 0x7C, 0x01},
			verify: func(t *testing.T, h *FrameHeader) {
				if h.Period != 2*time.Hour {
					t.Errorf("period = %s, want 2h", h.Period)
				}
				if !reflect.DeepEqual(h.DiffWidths, []int{3, 7}) {
					t.Errorf("diff widths = %v, want [3 7]", h.DiffWidths)
				}
				if h.Offset != 1 || h.Size != 5 {
					t.Errorf("offset = %d size = %d, want 1 and 5", h.Offset, h.Size)
				}
			},
		},
		{
			name:    "unsupported port",
			port:    Port(85),
			payload: []byte{0x00, 0x77, 0x94},
			wantErr: ErrUnsupportedPort,
		},
		{
			name:    "unsupported version",
			port:    PortMulti,
			payload: []byte{0x00, 0xB7, 0x94},
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "version zero",
			port:    PortSingle,
			payload: []byte{0x00, 0x37},
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "empty payload",
			port:    PortSingle,
			payload: nil,
			wantErr: ErrShortHeader,
		},
		{
			name:    "header truncated after fixed bytes",
			port:    PortMultiDiffsOffset,
			payload: []byte{0x00, 0x77, 0x94, 0x20},
			wantErr: ErrShortHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHeader(tt.port, tt.payload, 2)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseHeader() error = %v, want %v", err, tt.wantErr)
				}
				if h != nil {
					t.Errorf("ParseHeader() returned header %v alongside error", h)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeader() unexpected error: %v", err)
			}
			if h.Port != tt.port {
				t.Errorf("port = %s, want %s", h.Port, tt.port)
			}
			tt.verify(t, h)
		})
	}
}

func TestParseHeaderTooManyDiffChannels(t *testing.T) {
	_, err := ParseHeader(PortMultiDiffs, []byte{0x00, 0x77, 0x94, 0x20}, 3)
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("error = %v, want ErrInvalidSchema", err)
	}
}

func TestPortLayout(t *testing.T) {
	tests := []struct {
		port   Port
		size   int
		period bool
		diffs  bool
		offset bool
	}{
		{PortSingle, 2, false, false, false},
		{PortMulti, 3, true, false, false},
		{PortMultiOffset, 4, true, false, true},
		{PortMultiDiffs, 4, true, true, false},
		{PortMultiDiffsOffset, 5, true, true, true},
		{Port(0), 0, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.port.String(), func(t *testing.T) {
			if got := tt.port.HeaderSize(); got != tt.size {
				t.Errorf("HeaderSize() = %d, want %d", got, tt.size)
			}
			if tt.port.HasPeriod() != tt.period || tt.port.HasDiffs() != tt.diffs || tt.port.HasOffset() != tt.offset {
				t.Errorf("layout = (%v,%v,%v), want (%v,%v,%v)",
					tt.port.HasPeriod(), tt.port.HasDiffs(), tt.port.HasOffset(), tt.period, tt.diffs, tt.offset)
			}
			if tt.port.Supported() != (tt.size > 0) {
				t.Errorf("Supported() = %v", tt.port.Supported())
			}
		})
	}
	if len(Ports()) != 5 {
		t.Errorf("Ports() = %v, want 5 ports", Ports())
	}
}

func TestBattery(t *testing.T) {
	for code := uint8(0); code <= MaxBatteryCode; code++ {
		volts := BatteryVolts(code)
		back, err := BatteryCodeFor(volts)
		if err != nil {
			t.Fatalf("BatteryCodeFor(%.1f) error: %v", volts, err)
		}
		if back != code {
			t.Errorf("BatteryCodeFor(BatteryVolts(%d)) = %d", code, back)
		}
	}
	if BatteryVolts(0x0F) != 4.0 {
		t.Errorf("BatteryVolts(15) = %v, want 4.0", BatteryVolts(0x0F))
	}
	for _, v := range []float64{2.0, 4.1} {
		if _, err := BatteryCodeFor(v); !errors.Is(err, ErrValueOverflow) {
			t.Errorf("BatteryCodeFor(%.1f) error = %v, want ErrValueOverflow", v, err)
		}
	}
}

func TestDiffWidthByte(t *testing.T) {
	tests := []struct {
		b      byte
		widths []int
	}{
		{0x00, []int{0, 0}},
		{0x20, []int{1, 0}},
		{0x04, []int{0, 1}},
		{0xFC, []int{7, 7}},
		{0x6C, []int{3, 3}},
	}
	for _, tt := range tests {
		if got := UnpackDiffWidths(tt.b, 2); !reflect.DeepEqual(got, tt.widths) {
			t.Errorf("UnpackDiffWidths(0x%02x) = %v, want %v", tt.b, got, tt.widths)
		}
		got, err := PackDiffWidths(tt.widths)
		if err != nil || got != tt.b {
			t.Errorf("PackDiffWidths(%v) = 0x%02x, %v, want 0x%02x", tt.widths, got, err, tt.b)
		}
	}

	if _, err := PackDiffWidths([]int{8, 0}); !errors.Is(err, ErrValueOverflow) {
		t.Errorf("PackDiffWidths([8 0]) error = %v, want ErrValueOverflow", err)
	}
	if _, err := PackDiffWidths([]int{1, 1, 1}); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("PackDiffWidths(3 channels) error = %v, want ErrInvalidSchema", err)
	}
}

func TestCodecErrorMessage(t *testing.T) {
	err := newError(ErrTypeShortHeader, PortMulti, "payload is %d bytes, need %d", 2, 3)
	want := "Short Header: payload is 2 bytes, need 3 (port 81)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if errors.Is(err, ErrUnsupportedPort) {
		t.Error("short header error matched ErrUnsupportedPort")
	}
	var codecErr *CodecError
	if !errors.As(err, &codecErr) || codecErr.Type != ErrTypeShortHeader {
		t.Errorf("error = %v, want a short header CodecError", err)
	}

	wrapped := &CodecError{Type: ErrTypeInvalidSchema, Err: errors.New("boom")}
	if !errors.Is(wrapped, ErrInvalidSchema) || errors.Unwrap(wrapped) == nil {
		t.Error("wrapped error lost its type or cause")
	}
}
