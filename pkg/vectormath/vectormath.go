// Package vectormath provides the similarity and encoding primitives shared
// by all vector store backends.
package vectormath

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cosine returns the cosine similarity between a and b in [-1, 1].
// Returns 0 when either vector has zero norm, so degenerate vectors sort
// last instead of producing NaN. Panics are never used for length
// mismatches; callers validate dimensions before scoring.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EncodeFloat32 serializes a vector as little-endian IEEE 754 float32
// bytes, the layout RediSearch expects for FLOAT32 vector fields.
func EncodeFloat32(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeFloat32 is the inverse of EncodeFloat32.
func DecodeFloat32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// ToFloat64 widens a float32 vector. Useful for stores whose drivers
// round-trip numeric arrays as float64.
func ToFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

// ToFloat32 narrows a float64 vector.
func ToFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
