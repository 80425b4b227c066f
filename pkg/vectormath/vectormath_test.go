package vectormath

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0.0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1.0,
		},
		{
			name: "scaled copy scores 1",
			a:    []float32{1, 2, 3},
			b:    []float32{2, 4, 6},
			want: 1.0,
		},
		{
			name: "zero vector scores 0",
			a:    []float32{0, 0, 0},
			b:    []float32{1, 2, 3},
			want: 0.0,
		},
		{
			name: "both zero scores 0",
			a:    []float32{0, 0},
			b:    []float32{0, 0},
			want: 0.0,
		},
		{
			name: "length mismatch scores 0",
			a:    []float32{1, 2},
			b:    []float32{1, 2, 3},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineNeverNaN(t *testing.T) {
	got := Cosine([]float32{0, 0, 0}, []float32{0, 0, 0})
	if math.IsNaN(got) {
		t.Error("Cosine() returned NaN for zero vectors")
	}
}

func TestEncodeDecodeFloat32(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.14159, math.MaxFloat32}

	blob := EncodeFloat32(vec)
	if len(blob) != 4*len(vec) {
		t.Fatalf("blob length = %d, want %d", len(blob), 4*len(vec))
	}

	got, err := DecodeFloat32(blob)
	if err != nil {
		t.Fatalf("DecodeFloat32() error = %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestDecodeFloat32BadLength(t *testing.T) {
	if _, err := DecodeFloat32([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeFloat32() expected error for truncated blob")
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 42}
	got := ToFloat32(ToFloat64(vec))
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("round trip[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}
