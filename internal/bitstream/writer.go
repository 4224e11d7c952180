package bitstream

// Writer appends variable-width fields using the same layout Reader expects.
type Writer struct {
	buf     []byte
	byteOff int
	bitOff  int
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 32)}
}

// Add appends the low nbits of value.
func (w *Writer) Add(value uint64, nbits int) {
	for nbits > 0 {
		if w.byteOff == len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		take := min(8-w.bitOff, nbits)
		w.buf[w.byteOff] |= byte(value&masks[take-1]) << w.bitOff
		value >>= take
		nbits -= take

		w.bitOff += take
		if w.bitOff >= 8 {
			w.bitOff -= 8
			w.byteOff++
		}
	}
}

// AddSigned appends a sign bit (1 = negative) followed by |value| as an
// nbits magnitude.
func (w *Writer) AddSigned(value int64, nbits int) {
	if value < 0 {
		w.Add(1, 1)
		w.Add(uint64(-value), nbits)
		return
	}
	w.Add(0, 1)
	w.Add(uint64(value), nbits)
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return w.byteOff*8 + w.bitOff
}

// Bytes returns the bytes touched so far, including a partially filled
// trailing byte. Unused high bits of that byte are zero.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}
