package model

// NormalizeDims replaces dynamic (-1) and zero dims with 1.
func NormalizeDims(dims []int64) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}

// VectorProduct returns the product of dims, or 0 for an empty shape.
func VectorProduct(dims []int64) int64 {
	if len(dims) == 0 {
		return 0
	}
	p := int64(1)
	for _, d := range dims {
		p *= d
	}
	return p
}

// CopyShape returns a copy of dims.
func CopyShape(dims []int64) []int64 {
	return append([]int64(nil), dims...)
}
