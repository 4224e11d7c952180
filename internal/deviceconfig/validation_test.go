package deviceconfig

import (
	"errors"
	"testing"

	"github.com/cloudia/cloudia/internal/protocol"
)

func TestParsePeriodFlag(t *testing.T) {
	tests := []struct {
		input     string
		wantCount int
		wantUnit  protocol.PeriodUnit
		wantParse bool // expect a parse error
		wantValid bool // expect a validation error
	}{
		{"10s", 10, protocol.UnitSeconds, false, false},
		{"127s", 127, protocol.UnitSeconds, false, false},
		{"0s", 0, protocol.UnitSeconds, false, false},
		{"15m", 15, protocol.UnitMinutes, false, false},
		{"63h", 63, protocol.UnitHours, false, false},
		{"128s", 0, 0, false, true},
		{"64m", 0, 0, false, true},
		{"100h", 0, 0, false, true},
		{"", 0, 0, true, false},
		{"10", 0, 0, true, false},
		{"s", 0, 0, true, false},
		{"10d", 0, 0, true, false},
		{"-5s", 0, 0, true, false},
		{" 10s", 0, 0, true, false},
		{"10S", 0, 0, true, false},
		{"99999999999999999999s", 0, 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			count, unit, err := ParsePeriodFlag(tt.input)
			switch {
			case tt.wantParse:
				if !IsParseError(err) {
					t.Errorf("ParsePeriodFlag(%q) error = %v, want parse error", tt.input, err)
				}
			case tt.wantValid:
				if !IsValidationError(err) {
					t.Errorf("ParsePeriodFlag(%q) error = %v, want validation error", tt.input, err)
				}
				if !errors.Is(err, protocol.ErrValueOverflow) {
					t.Errorf("ParsePeriodFlag(%q) error does not wrap ErrValueOverflow", tt.input)
				}
			default:
				if err != nil {
					t.Fatalf("ParsePeriodFlag(%q) error: %v", tt.input, err)
				}
				if count != tt.wantCount || unit != tt.wantUnit {
					t.Errorf("ParsePeriodFlag(%q) = %d%c, want %d%c", tt.input, count, unit, tt.wantCount, tt.wantUnit)
				}
			}
		})
	}
}

func TestValidateSamples(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{0, false},
		{10, false},
		{255, false},
		{256, true},
		{-1, true},
	}
	for _, tt := range tests {
		err := ValidateSamples(tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSamples(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if err != nil && !IsValidationError(err) {
			t.Errorf("ValidateSamples(%d) returned %T, want *ConfigError", tt.n, err)
		}
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  Configuration
		want int
	}{
		{"typical", Configuration{Period: 0x8A, Samples: 10}, 0},
		{"reserved set", Configuration{Reserved1: 1, Period: 0x8A, Samples: 10}, 1},
		{"zero period", Configuration{Period: 0x80, Samples: 10}, 1},
		{"everything off", Configuration{Reserved2: 9}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateConfiguration(&tt.cfg)
			if len(errs) != tt.want {
				t.Errorf("ValidateConfiguration() = %v, want %d errors", errs, tt.want)
			}
		})
	}
}
