package score

// HalfOpen converts a 1-based inclusive interval to the 0-based half-open
// convention used by every indexed backend. All adapters convert through
// this function and nowhere else.
func HalfOpen(start, stop int64) (beg, end int) {
	return int(start - 1), int(stop)
}

// Inclusive converts a 0-based half-open interval back to 1-based inclusive.
func Inclusive(beg, end int) (start, stop int64) {
	return int64(beg) + 1, int64(end)
}

// Clamp bounds a 0-based half-open interval to a sequence of the given
// length. A non-positive length leaves the interval unchanged. The result
// may be empty (beg >= end) when the interval lies past the sequence end.
func Clamp(beg, end, length int) (int, int) {
	if beg < 0 {
		beg = 0
	}
	if length > 0 {
		if end > length {
			end = length
		}
		if beg > length {
			beg = length
		}
	}
	return beg, end
}

// Midpoint returns the 1-based midpoint of a 0-based half-open interval,
// rounding halves up.
func Midpoint(beg, end int) int64 {
	start, stop := Inclusive(beg, end)
	return (start + stop + 1) / 2
}
