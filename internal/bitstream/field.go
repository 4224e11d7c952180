package bitstream

// FieldBits returns how many bits a field of the given width occupies.
// Zero-width fields occupy nothing, sign bit included.
func FieldBits(width int, signed bool) int {
	if width <= 0 {
		return 0
	}
	if signed {
		return width + 1
	}
	return width
}

// ReadField reads one field. A zero-width field consumes no bits and reads 0.
func ReadField(r *Reader, width int, signed bool) int64 {
	if width <= 0 {
		return 0
	}
	return r.Read(width, signed)
}

// WriteField writes one field. Nothing is written for a zero-width field.
// Callers check Fits first; excess magnitude bits are dropped.
func WriteField(w *Writer, value int64, width int, signed bool) {
	if width <= 0 {
		return
	}
	if signed {
		w.AddSigned(value, width)
		return
	}
	w.Add(uint64(value), width)
}

// Fits reports whether value round-trips through a field of the given width.
func Fits(value int64, width int, signed bool) bool {
	if width <= 0 {
		return value == 0
	}
	if width > MaxWidth {
		return false
	}
	if !signed && value < 0 {
		return false
	}
	magnitude := value
	if magnitude < 0 {
		magnitude = -magnitude
	}
	return uint64(magnitude) < uint64(1)<<width
}
