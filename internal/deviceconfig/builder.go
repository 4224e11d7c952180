package deviceconfig

import (
	"time"

	"github.com/cloudia/cloudia/internal/protocol"
)

// ConfigBuilder provides a fluent API for building a configuration downlink.
// It tracks changes and validates them before creating a Configuration.
//
// Example usage:
//
//	cfg, err := NewConfigBuilder(nil).
//	    SetPeriodFlag("10s").
//	    SetSamples(10).
//	    Build()
//	payload := cfg.Payload() // 00 00 8a 0a
type ConfigBuilder struct {
	// current holds the configuration the sensor runs today (baseline)
	current *Configuration

	reserved1 byte
	reserved2 byte

	periodChanged bool
	periodCount   int
	periodUnit    protocol.PeriodUnit
	periodByte    byte
	periodErr     error

	samplesChanged bool
	samples        int
}

// NewConfigBuilder creates a new builder with current as baseline.
// Pass nil when the sensor's configuration is unknown; period and sample
// count must then be set explicitly.
func NewConfigBuilder(current *Configuration) *ConfigBuilder {
	b := &ConfigBuilder{current: current}
	b.Reset()
	return b
}

// SetPeriod sets the sampling period as count units.
func (b *ConfigBuilder) SetPeriod(count int, unit protocol.PeriodUnit) *ConfigBuilder {
	b.periodChanged = true
	b.periodCount = count
	b.periodUnit = unit
	b.periodErr = nil
	return b
}

// SetPeriodFlag sets the sampling period from a string such as "10s".
// Parse errors are reported by Validate and Build.
func (b *ConfigBuilder) SetPeriodFlag(s string) *ConfigBuilder {
	count, unit, err := ParsePeriodFlag(s)
	b.SetPeriod(count, unit)
	b.periodErr = err
	return b
}

// SetPeriodDuration sets the sampling period from a duration, choosing the
// finest unit that represents it exactly.
func (b *ConfigBuilder) SetPeriodDuration(d time.Duration) *ConfigBuilder {
	b.periodChanged = true
	pb, err := protocol.EncodePeriod(d)
	if err != nil {
		b.periodErr = NewFieldError("period", err)
		return b
	}
	b.periodErr = nil
	b.periodUnit = 0
	b.periodByte = pb
	return b
}

// SetSamples sets the number of epochs per uplink.
func (b *ConfigBuilder) SetSamples(n int) *ConfigBuilder {
	b.samplesChanged = true
	b.samples = n
	return b
}

// HasChanges returns true if any configuration changes have been made.
func (b *ConfigBuilder) HasChanges() bool {
	return b.periodChanged || b.samplesChanged
}

// Validate checks if the current configuration is valid.
// Returns an error if any validation rules are violated.
func (b *ConfigBuilder) Validate() error {
	if b.current == nil && !b.periodChanged {
		return NewValidationError("period must be set")
	}
	if b.current == nil && !b.samplesChanged {
		return NewValidationError("sample count must be set")
	}
	if b.periodErr != nil {
		return b.periodErr
	}
	if b.periodChanged && b.periodUnit != 0 {
		if err := ValidatePeriod(b.periodCount, b.periodUnit); err != nil {
			return err
		}
	}
	return ValidateSamples(b.samples)
}

// Build creates a Configuration from the builder's state.
// Returns an error if validation fails.
func (b *ConfigBuilder) Build() (*Configuration, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	period := b.periodByte
	if b.periodChanged && b.periodUnit != 0 {
		pb, err := protocol.PeriodByte(b.periodCount, b.periodUnit)
		if err != nil {
			return nil, NewFieldError("period", err)
		}
		period = pb
	}

	return &Configuration{
		Reserved1: b.reserved1,
		Reserved2: b.reserved2,
		Period:    period,
		Samples:   uint8(b.samples),
	}, nil
}

// Reset clears all changes and restores builder to initial state.
func (b *ConfigBuilder) Reset() *ConfigBuilder {
	b.periodChanged = false
	b.samplesChanged = false
	b.periodErr = nil
	b.periodCount = 0
	b.periodUnit = 0

	if b.current != nil {
		b.reserved1 = b.current.Reserved1
		b.reserved2 = b.current.Reserved2
		b.periodByte = b.current.Period
		b.samples = int(b.current.Samples)
	} else {
		b.reserved1 = 0
		b.reserved2 = 0
		b.periodByte = 0
		b.samples = 0
	}

	return b
}
