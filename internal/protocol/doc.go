// Package protocol implements the uplink codec of the cloudia LoRaWAN
// temperature/humidity sensor.
//
// The sensor batches several measurements into one uplink to save airtime.
// Each uplink is a short byte header followed by a bit-packed body. The
// FPort the uplink arrives on selects the header layout.
//
// # Header Layout
//
//	byte 0         version bits 9..2
//	byte 1         bits 7..6 version bits 1..0
//	               bits 5..2 battery code (2.5 V + code/10)
//	               bits 1..0 reserved
//	byte 2         period         (ports 81, 82, 90, 91)
//	byte 3         diff widths    (ports 90, 91)
//	next byte      offset         (ports 82, 91)
//
// Header sizes per port:
//
//	80  single epoch                 2 bytes
//	81  multiple epochs              3 bytes
//	82  multiple epochs + offset     4 bytes
//	90  delta-encoded epochs         4 bytes
//	91  delta-encoded + offset       5 bytes
//
// Only version 1 payloads are accepted.
//
// # Period Byte
//
// Bit 7 set: low 7 bits count seconds. Otherwise bit 6 set: low 6 bits count
// minutes. Otherwise the low 6 bits count hours. Epoch i is stamped at
// receipt time minus i periods. The offset byte is carried in FrameHeader but
// does not shift timestamps.
//
// # Body
//
// The body is read LSB first with package bitstream. Every epoch holds one
// field per schema channel, in schema order. Without diffs every epoch
// holds absolute values using the channel's base width and signedness.
// With diffs only epoch 0 is absolute; later epochs hold signed deltas of
// the width given in the diff-width byte (three bits per channel, channel 0
// in bits 7..5). A zero diff width means the channel does not change and
// takes no bits at all.
//
// Decoding stops when the remaining bits cannot hold another epoch. Trailing
// zero padding is therefore never an error, though a payload whose delta
// epochs are narrower than its padding may yield extra zero-delta epochs.
//
// # Usage Example - Decoding
//
//	dec, err := protocol.NewDecoder(protocol.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	cur, err := dec.Decode(protocol.Port(fport), payload, receivedAt)
//	if err != nil {
//	    return err // unsupported port or version, short header
//	}
//	for cur.Advance() {
//	    ep := cur.Epoch()
//	    t, _ := ep.Value(protocol.ChannelTemperature)
//	    fmt.Println(ep.Time, t)
//	}
//
// # Usage Example - Encoding
//
//	enc, _ := protocol.NewEncoder(protocol.DefaultSchema())
//	port, payload, err := enc.Encode(protocol.UplinkParams{
//	    BatteryCode: 13,
//	    Period:      20 * time.Second,
//	    UseDiffs:    true,
//	}, [][]int64{{233, 61}, {232, 61}})
//
// # Error Handling
//
// Header problems (unknown port, unsupported version, header shorter than
// its port requires) are returned as *CodecError before any epoch is
// produced. Use errors.Is with ErrUnsupportedPort, ErrUnsupportedVersion
// and friends to tell them apart. Values outside a channel's plausible range
// are still returned, flagged with Sample.InRange and logged as warnings.
//
// # Thread Safety
//
// Decoder and Encoder are immutable after construction and safe for
// concurrent use. An EpochCursor belongs to a single goroutine.
package protocol
