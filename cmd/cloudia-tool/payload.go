package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudia/cloudia/internal/deviceconfig"
	"github.com/cloudia/cloudia/internal/lns"
	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/protocol"
	"github.com/cloudia/cloudia/internal/server"
	"github.com/cloudia/cloudia/internal/sink"
	"github.com/cloudia/cloudia/internal/ui"
)

// Decode command flags
var (
	decodePort     uint8
	decodeHex      bool
	decodeReceived string
	decodeFormat   string
)

// Encode command flags
var (
	encodeBattery  float64
	encodePeriod   time.Duration
	encodeOffset   uint8
	encodeNoDiffs  bool
	encodeVersion  uint16
	encodeUplinkEU string
)

func init() {
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode <payload>",
	Short: "Decode an uplink payload",
	Long: `Decode a bit-packed TH uplink into its epochs.

The payload is the frm_payload of an uplink, base64 encoded as shown by the
network server console, or hex with --hex. Epoch times are reconstructed
backwards from the receipt time using the period in the header.

Port 144 decodes a 4-byte configuration downlink instead.`,
	Example: `  # Decode a port 90 uplink received now
  cloudia-tool decode --port 90 AHeUINLp7QI=

  # Hex payload with an explicit receipt time
  cloudia-tool decode --port 90 --hex '00 77 94 20 d2 e9 ed 02' --received 2024-05-01T12:00:00Z

  # JSON output, as streamed by the live feed
  cloudia-tool decode --port 90 AHeUINLp7QI= --format json

  # Configuration downlink queued by cloudia-downlink
  cloudia-tool decode --port 144 AABFDA==`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().Uint8Var(&decodePort, "port", 0, "LoRaWAN f_port of the payload (80, 81, 82, 90, 91, or 144 for a configuration)")
	decodeCmd.Flags().BoolVar(&decodeHex, "hex", false, "Payload is hex instead of base64")
	decodeCmd.Flags().StringVar(&decodeReceived, "received", "", "Receipt time (RFC 3339, default: now)")
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "text", "Output format (text, json)")
	_ = decodeCmd.MarkFlagRequired("port")
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodePort == lns.ConfigPort {
		return runDecodeConfig(cmd, args[0])
	}
	port := protocol.Port(decodePort)
	if !port.Supported() {
		return fmt.Errorf("port %d is not a TH uplink port (supported: %v, or %d for a configuration)",
			decodePort, protocol.Ports(), lns.ConfigPort)
	}

	payload, err := parsePayloadArg(args[0], decodeHex)
	if err != nil {
		return err
	}
	logging.LogRawBytes("payload", payload)

	received := time.Now()
	if decodeReceived != "" {
		received, err = time.Parse(time.RFC3339, decodeReceived)
		if err != nil {
			return fmt.Errorf("invalid --received: %w", err)
		}
	}

	decoder, err := protocol.NewDecoder()
	if err != nil {
		return err
	}
	epochs, header, err := decoder.DecodeAll(port, payload, received)
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	rec := server.NewFeedRecord(sink.Record{
		DevEUI:   "-",
		Port:     port,
		Battery:  header.Battery,
		Received: received,
		Epochs:   epochs,
	})

	switch decodeFormat {
	case "json":
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "text":
		printer := ui.NewPrinter(cmd.OutOrStdout())
		printer.PrintHeader("Uplink Decode", "cloudia-tool decode", headerParams(header, len(epochs))...)
		for i, e := range rec.Epochs {
			printer.Println(fmt.Sprintf("#%-3d %s", i, ui.FormatEpoch(e)))
		}
		if n := countOutOfRange(epochs); n > 0 {
			printer.Newline()
			printer.PrintWarning("Values Out Of Range",
				ui.Param{Key: "Samples", Value: strconv.Itoa(n)},
				ui.Param{Key: "Hint", Value: "check --port and the payload encoding"},
			)
		}
	default:
		return fmt.Errorf("unknown format %q (expected text or json)", decodeFormat)
	}
	return nil
}

// configJSON is the JSON form of a decoded configuration downlink.
type configJSON struct {
	Period         string   `json:"period"`
	Samples        uint8    `json:"samples"`
	UplinkInterval string   `json:"uplink_interval"`
	Payload        string   `json:"payload"`
	Warnings       []string `json:"warnings,omitempty"`
}

func runDecodeConfig(cmd *cobra.Command, arg string) error {
	var (
		conf *deviceconfig.Configuration
		err  error
	)
	if decodeHex {
		payload, perr := parsePayloadArg(arg, true)
		if perr != nil {
			return perr
		}
		conf, err = deviceconfig.ParsePayload(payload)
	} else {
		conf, err = deviceconfig.ParseBase64(strings.TrimSpace(arg))
	}
	if err != nil {
		return fmt.Errorf("invalid configuration payload: %s", deviceconfig.GetShortErrorMessage(err))
	}

	var warnings []string
	for _, verr := range deviceconfig.ValidateConfiguration(conf) {
		warnings = append(warnings, deviceconfig.GetShortErrorMessage(verr))
	}

	switch decodeFormat {
	case "json":
		data, err := json.MarshalIndent(configJSON{
			Period:         deviceconfig.FormatPeriod(conf.Period),
			Samples:        conf.Samples,
			UplinkInterval: conf.UplinkInterval().String(),
			Payload:        conf.Base64(),
			Warnings:       warnings,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "text":
		fmt.Fprint(cmd.OutOrStdout(), conf.FormatCompact())
		for _, w := range warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning:  %s\n", w)
		}
	default:
		return fmt.Errorf("unknown format %q (expected text or json)", decodeFormat)
	}
	return nil
}

func countOutOfRange(epochs []protocol.Epoch) int {
	n := 0
	for _, e := range epochs {
		for _, s := range e.Samples {
			if !s.InRange {
				n++
			}
		}
	}
	return n
}

func headerParams(h *protocol.FrameHeader, epochs int) []ui.Param {
	params := []ui.Param{
		{Key: "Port", Value: h.Port.String()},
		{Key: "Version", Value: strconv.Itoa(int(h.Version))},
		{Key: "Battery", Value: fmt.Sprintf("%.1f V (code %d)", h.Battery, h.BatteryCode)},
	}
	if h.Port.HasPeriod() {
		params = append(params, ui.Param{Key: "Period", Value: h.Period.String()})
	}
	if h.DiffWidths != nil {
		params = append(params, ui.Param{Key: "Diff widths", Value: fmt.Sprint(h.DiffWidths)})
	}
	if h.HasOffset {
		params = append(params, ui.Param{Key: "Offset", Value: strconv.Itoa(int(h.Offset))})
	}
	return append(params, ui.Param{Key: "Epochs", Value: strconv.Itoa(epochs)})
}

var encodeCmd = &cobra.Command{
	Use:   "encode <epoch>...",
	Short: "Build an uplink payload",
	Long: `Build a bit-packed TH uplink from physical values.

Each argument is one epoch written as comma-separated channel values in
schema order (temperature in °C, humidity in %), or by name as H=61,T=23.3,
most recent first. The port is chosen from the epoch count: 80 for one
epoch, 81 for several and 90 when every delta fits the diff encoding and
at least one value changes. --offset selects 82 or 91.

With --uplink the payload is wrapped in a network server uplink event, ready
to publish to a test broker or feed to the replay tool.`,
	Example: `  # Single epoch on port 80
  cloudia-tool encode 23.3,61

  # Three epochs 20 seconds apart, diff encoded on port 90
  cloudia-tool encode --period 20s --battery 3.8 23.3,61 23.2,61 23.2,60

  # Uplink event for a test broker
  cloudia-tool encode --uplink 70B3D57ED005A1B2 21.5,48`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().Float64Var(&encodeBattery, "battery", 3.3, "Battery voltage (2.5-4.0 V)")
	encodeCmd.Flags().DurationVar(&encodePeriod, "period", 10*time.Second, "Spacing between epochs")
	encodeCmd.Flags().Uint8Var(&encodeOffset, "offset", 0, "Emit an offset byte with this value (ports 82/91)")
	encodeCmd.Flags().BoolVar(&encodeNoDiffs, "no-diffs", false, "Always send absolute values")
	encodeCmd.Flags().Uint16Var(&encodeVersion, "payload-version", protocol.SupportedVersion, "Payload format version")
	encodeCmd.Flags().StringVar(&encodeUplinkEU, "uplink", "", "Wrap the payload in an uplink event for this dev_eui")
}

func runEncode(cmd *cobra.Command, args []string) error {
	schema := protocol.DefaultSchema()
	samples := make([][]int64, 0, len(args))
	for _, arg := range args {
		raw, err := parseEpochArg(schema, arg)
		if err != nil {
			return err
		}
		samples = append(samples, raw)
	}

	code, err := protocol.BatteryCodeFor(encodeBattery)
	if err != nil {
		return err
	}
	encoder, err := protocol.NewEncoder(schema)
	if err != nil {
		return err
	}
	port, payload, err := encoder.Encode(protocol.UplinkParams{
		Version:     encodeVersion,
		BatteryCode: code,
		Period:      encodePeriod,
		Offset:      encodeOffset,
		UseOffset:   cmd.Flags().Changed("offset"),
		UseDiffs:    !encodeNoDiffs,
	}, samples)
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if encodeUplinkEU != "" {
		data, err := uplinkEvent(encodeUplinkEU, port, payload, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "port:    %d\n", port)
	fmt.Fprintf(out, "base64:  %s\n", base64.StdEncoding.EncodeToString(payload))
	fmt.Fprintf(out, "hex:     % x\n", payload)
	return nil
}

// parsePayloadArg decodes a base64 payload, or hex when asHex is set.
// Whitespace is ignored in hex input.
func parsePayloadArg(s string, asHex bool) ([]byte, error) {
	if asHex {
		clean := strings.Join(strings.Fields(s), "")
		b, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("invalid hex payload: %w", err)
		}
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload (use --hex for hex input): %w", err)
	}
	return b, nil
}

// parseEpochArg converts "23.3,61" or "H=61,T=23.3" into raw channel
// values for schema.
func parseEpochArg(schema protocol.Schema, s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != schema.Len() {
		return nil, fmt.Errorf("epoch %q: want %d values (%s)", s, schema.Len(), strings.Join(schema.Names(), ","))
	}
	raw := make([]int64, len(parts))
	seen := make([]bool, len(parts))
	named := strings.Contains(s, "=")
	for i, p := range parts {
		idx, text := i, p
		if named {
			name, value, ok := strings.Cut(p, "=")
			if !ok {
				return nil, fmt.Errorf("epoch %q: mix of named and positional values", s)
			}
			idx, text = schema.Index(strings.TrimSpace(name)), value
			if idx < 0 {
				return nil, fmt.Errorf("epoch %q: unknown channel %q (want %s)", s, strings.TrimSpace(name), strings.Join(schema.Names(), ","))
			}
			if seen[idx] {
				return nil, fmt.Errorf("epoch %q: channel %s given twice", s, schema.Variable(idx).Name)
			}
		}
		seen[idx] = true

		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("epoch %q: %s: %w", s, schema.Variable(idx).Name, err)
		}
		raw[idx] = int64(math.Round(v / schema.Variable(idx).Scale))
	}
	return raw, nil
}

// uplinkEvent wraps payload in a minimal uplink event.
func uplinkEvent(devEUI string, port protocol.Port, payload []byte, at time.Time) ([]byte, error) {
	fport := uint8(port)
	up := lns.Uplink{
		EndDeviceIDs: lns.DeviceIDs{
			DeviceID: "th-" + strings.ToLower(devEUI),
			DevEUI:   strings.ToUpper(devEUI),
		},
		EventReceivedAt: &at,
		UplinkMessage: &lns.UplinkMessage{
			FPort:      &fport,
			FrmPayload: payload,
			ReceivedAt: &at,
		},
	}
	data, err := json.Marshal(up)
	if err != nil {
		return nil, fmt.Errorf("failed to encode uplink: %w", err)
	}
	return data, nil
}
