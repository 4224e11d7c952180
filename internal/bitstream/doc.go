// Package bitstream implements the LSB-first bit cursor used by the sensor
// uplink format.
//
// Fields are packed back to back with no alignment. Within a byte the first
// bit written is bit 0, and a field that does not fit in the current byte
// continues in bit 0 of the next one. Signed fields are sign-magnitude: one
// sign bit (1 = negative) followed by the magnitude.
//
// # Reading
//
//	r := bitstream.NewReader(payload)
//	if r.Remaining() >= bitstream.FieldBits(10, true) {
//	    t := bitstream.ReadField(r, 10, true)
//	}
//
// The Reader does no bounds checking: callers size every read against
// Remaining first. The frame decoder treats a short buffer as the end of
// the data rather than as an error.
//
// # Writing
//
//	w := bitstream.NewWriter()
//	bitstream.WriteField(w, 233, 10, true)
//	bitstream.WriteField(w, 61, 7, false)
//	payload := w.Bytes()
//
// Writer output decodes back exactly through Reader with the same widths.
//
// # Zero-width fields
//
// A field declared with width 0 occupies no bits at all, not even a sign bit,
// and always reads back as 0. The uplink format uses this for channels whose
// value did not change between epochs.
package bitstream
