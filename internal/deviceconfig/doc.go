// Package deviceconfig builds the configuration downlink of the cloudia sensor.
//
// The sensor accepts a 4-byte configuration on FPort 144:
//
//	byte 0-1  reserved (0)
//	byte 2    sampling period, same encoding as the uplink period byte
//	byte 3    number of samples batched into one uplink
//
// The package turns user input such as "--period 10s --nsamples 10" into
// that payload and validates it on the way. Transport is handled by package
// lns, which wraps the payload in a downlink push message.
//
// # Usage Example
//
//	cfg, err := deviceconfig.NewConfigBuilder(nil).
//	    SetPeriodFlag("10s").
//	    SetSamples(10).
//	    Build()
//	if err != nil {
//	    fmt.Println(deviceconfig.GetShortErrorMessage(err))
//	    return err
//	}
//	push := lns.NewDownlinkPush(cfg.Payload())
//
// # Period Limits
//
// Seconds are stored in 7 bits, minutes and hours in 6. Values that do not
// fit are rejected rather than truncated: "200s" is refused, "3m" is not.
//
// # Error Handling
//
// Every error is a *ConfigError. Use IsValidationError and IsParseError to
// branch, and GetShortErrorMessage for terminal output.
package deviceconfig
