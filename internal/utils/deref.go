package utils

// Value dereferences p, yielding the zero value of T for a nil pointer so
// callers can print optional records without a nil check.
func Value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
