package bitstream

// masks[n-1] keeps the low n bits of a byte.
var masks = [8]uint64{0x01, 0x03, 0x07, 0x0F, 0x1F, 0x3F, 0x7F, 0xFF}

// MaxWidth is the widest magnitude a single Read or Add handles.
const MaxWidth = 63

// Reader extracts variable-width fields from a byte buffer, LSB first.
type Reader struct {
	buf     []byte
	byteOff int
	bitOff  int
}

// NewReader creates a reader positioned at the first bit of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Read consumes nbits of magnitude, preceded by one sign bit when signed is
// set, and returns the value. Callers must check Remaining beforehand.
func (r *Reader) Read(nbits int, signed bool) int64 {
	negative := false
	if signed {
		negative = (r.buf[r.byteOff]>>r.bitOff)&0x1 == 1
		r.advance(1)
	}

	var magnitude uint64
	shift := 0
	for nbits > 0 {
		take := min(8-r.bitOff, nbits)
		chunk := uint64(r.buf[r.byteOff]>>r.bitOff) & masks[take-1]
		magnitude |= chunk << shift
		shift += take
		nbits -= take
		r.advance(take)
	}

	if negative {
		return -int64(magnitude)
	}
	return int64(magnitude)
}

// advance moves the cursor n bits forward; n never crosses more than one
// byte boundary.
func (r *Reader) advance(n int) {
	r.bitOff += n
	if r.bitOff >= 8 {
		r.bitOff -= 8
		r.byteOff++
	}
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return (len(r.buf)-r.byteOff)*8 - r.bitOff
}

// Consumed returns the number of bits read so far.
func (r *Reader) Consumed() int {
	return r.byteOff*8 + r.bitOff
}

// Cursor returns the current byte offset and the bit offset within that byte.
func (r *Reader) Cursor() (byteOffset, bitOffset int) {
	return r.byteOff, r.bitOff
}

// Len returns the size of the underlying buffer in bits.
func (r *Reader) Len() int {
	return len(r.buf) * 8
}
