package static

import (
	"context"
	"math"
	"testing"
)

func TestEmbedDeterministic(t *testing.T) {
	p := New(Config{Dimensions: 16})
	ctx := context.Background()

	first, err := p.Embed(ctx, []string{"hello world"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := p.Embed(ctx, []string{"hello world"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("embedding differs at %d: %v vs %v", i, first[0][i], second[0][i])
		}
	}
}

func TestEmbedDistinctTexts(t *testing.T) {
	p := New(Config{Dimensions: 32})

	vecs, err := p.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}

	same := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestEmbedUnitNorm(t *testing.T) {
	p := New(Config{Dimensions: 384})

	vecs, err := p.Embed(context.Background(), []string{"normalize me"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	p := New(Config{})

	vecs, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vecs != nil {
		t.Errorf("got %v, want nil", vecs)
	}
}

func TestDimensions(t *testing.T) {
	if got := New(Config{}).Dimensions(); got != DefaultDimensions {
		t.Errorf("default dimensions = %d, want %d", got, DefaultDimensions)
	}
	if got := New(Config{Dimensions: 8}).Dimensions(); got != 8 {
		t.Errorf("dimensions = %d, want 8", got)
	}
}
