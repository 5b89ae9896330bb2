package vector

import "math"

// InnerProduct returns the inner product of two vectors, or 0 when their lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either norm is 0.
func CosineSimilarity(a, b []float32) float64 {
	return cosine(a, L2Norm(a), b)
}

func cosine(q []float32, qNorm float64, v []float32) float64 {
	vNorm := L2Norm(v)
	if qNorm == 0 || vNorm == 0 {
		return 0
	}
	return InnerProduct(q, v) / (qNorm * vNorm)
}
