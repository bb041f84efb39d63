package embedding

import (
	"context"
	"testing"
)

func TestMockEmbedder_deterministicUnitVectors(t *testing.T) {
	e := NewMockEmbedder(384)
	ctx := context.Background()

	a, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 384 {
		t.Fatalf("dimensions: %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
	}

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("not unit length: %v", sum)
	}

	other, err := e.Embed(ctx, "different")
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical vectors")
	}
}

func TestMockEmbedder_defaultsDimensions(t *testing.T) {
	e := NewMockEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("dimensions: %d", e.Dimensions())
	}
}

func TestCache_lruEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	// Touch "a" so "b" is the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", []float32{3})

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a evicted despite recent use")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c missing")
	}
	if c.Len() != 2 {
		t.Errorf("len: %d", c.Len())
	}
}

func TestCache_setExistingUpdatesValue(t *testing.T) {
	c := NewCache(2)
	c.Set("k", []float32{1})
	c.Set("k", []float32{9})
	v, ok := c.Get("k")
	if !ok || v[0] != 9 {
		t.Errorf("got %v ok=%v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("len: %d", c.Len())
	}
}

type countingEmbedder struct {
	*MockEmbedder
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.MockEmbedder.Embed(ctx, text)
}

func TestCachedEmbedder_hitsSkipInner(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	if _, err := e.Embed(ctx, "repeated"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(ctx, "repeated"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls: %d", inner.calls)
	}

	vectors, err := e.EmbedBatch(ctx, []string{"repeated", "fresh", "repeated"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 3 {
		t.Fatalf("vectors: %d", len(vectors))
	}
	if inner.calls != 2 {
		t.Errorf("inner calls after batch: %d", inner.calls)
	}
	if e.Dimensions() != 8 {
		t.Errorf("dimensions: %d", e.Dimensions())
	}
}
