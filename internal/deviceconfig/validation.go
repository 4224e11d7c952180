package deviceconfig

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/cloudia/cloudia/internal/protocol"
)

// MaxSamples is the largest sample count the configuration byte holds.
const MaxSamples = 255

var periodFlagPattern = regexp.MustCompile(`^([0-9]+)([smh])$`)

// ParsePeriodFlag parses a period such as "30s", "10m" or "2h".
// The count must fit its unit: up to 127 seconds, 63 minutes or 63 hours.
func ParsePeriodFlag(s string) (int, protocol.PeriodUnit, error) {
	m := periodFlagPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, &ConfigError{
			Type:    ErrTypeParse,
			Field:   "period",
			Message: fmt.Sprintf("%q does not match <number>[s|m|h]", s),
		}
	}

	count, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, &ConfigError{Type: ErrTypeParse, Field: "period", Message: "number out of range", Err: err}
	}
	unit, err := protocol.ParsePeriodUnit(m[2])
	if err != nil {
		return 0, 0, &ConfigError{Type: ErrTypeParse, Field: "period", Message: "bad unit", Err: err}
	}
	if err := ValidatePeriod(count, unit); err != nil {
		return 0, 0, err
	}
	return count, unit, nil
}

// ValidatePeriod checks that count fits the unit's field.
func ValidatePeriod(count int, unit protocol.PeriodUnit) error {
	if _, err := protocol.PeriodByte(count, unit); err != nil {
		return NewFieldError("period", err)
	}
	return nil
}

// ValidateSamples checks the sample count range (0-255).
func ValidateSamples(n int) error {
	if n < 0 || n > MaxSamples {
		return &ConfigError{
			Type:    ErrTypeValidation,
			Field:   "nsamples",
			Message: fmt.Sprintf("must be 0-%d, got %d", MaxSamples, n),
		}
	}
	return nil
}

// ValidateConfiguration checks a decoded configuration.
// Returns a slice of validation errors (empty if valid).
func ValidateConfiguration(c *Configuration) []error {
	var errs []error

	if c.Reserved1 != 0 || c.Reserved2 != 0 {
		errs = append(errs, NewValidationError(
			fmt.Sprintf("reserved bytes are 0x%02x 0x%02x, current firmware expects 0", c.Reserved1, c.Reserved2),
		))
	}
	if c.PeriodDuration() == 0 {
		errs = append(errs, NewValidationError("warning: zero sampling period"))
	}
	if c.Samples == 0 {
		errs = append(errs, NewValidationError("warning: zero samples per uplink"))
	}

	return errs
}
