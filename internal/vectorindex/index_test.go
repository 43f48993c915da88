package vectorindex

import (
	"math"
	"path/filepath"
	"testing"
)

func TestBuildRejectsMixedDimensions(t *testing.T) {
	_, err := Build([][]float32{{1, 0}, {1, 0, 0}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearchOrdering(t *testing.T) {
	idx, err := Build([][]float32{
		{0, 0, 5}, // far
		{1, 0, 0}, // exact
		{0, 1, 0}, // middle
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}

	if results[0].Ordinal != 1 {
		t.Errorf("nearest ordinal = %d, want 1", results[0].Ordinal)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not sorted by distance at %d", i)
		}
	}

	// Similarity is the bounded transform of squared L2 distance.
	if results[0].Distance != 0 || results[0].Similarity != 1.0 {
		t.Errorf("exact match: distance=%v similarity=%v", results[0].Distance, results[0].Similarity)
	}
	for _, r := range results {
		want := 1.0 / (1.0 + r.Distance)
		if math.Abs(r.Similarity-want) > 1e-12 {
			t.Errorf("similarity %v does not match 1/(1+d) for d=%v", r.Similarity, r.Distance)
		}
	}
}

func TestSearchKCap(t *testing.T) {
	idx, _ := Build([][]float32{{1}, {2}, {3}, {4}})

	results, err := idx.Search([]float32{0}, 2)
	if err != nil || len(results) != 2 {
		t.Fatalf("k=2 returned %d results, err=%v", len(results), err)
	}

	results, err = idx.Search([]float32{0}, 10)
	if err != nil || len(results) != 4 {
		t.Fatalf("k>len returned %d results, err=%v", len(results), err)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, _ := Build(nil)
	results, err := idx.Search([]float32{1, 2}, 3)
	if err != nil || results != nil {
		t.Fatalf("empty index: results=%v err=%v", results, err)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, _ := Build([][]float32{{1, 0}})
	if _, err := idx.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	idx, _ := Build([][]float32{{1, 2, 3}, {4, 5, 6}})
	path := filepath.Join(t.TempDir(), "sub", "test.idx")

	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Dim != 3 || loaded.Len() != 2 {
		t.Fatalf("loaded dim=%d len=%d", loaded.Dim, loaded.Len())
	}

	results, err := loaded.Search([]float32{1, 2, 3}, 1)
	if err != nil || len(results) != 1 || results[0].Ordinal != 0 {
		t.Fatalf("search on loaded index: %v err=%v", results, err)
	}
}

func TestManagerMissingIndex(t *testing.T) {
	m := NewManager(t.TempDir())

	idx := m.Get("does_not_exist")
	if idx == nil || idx.Len() != 0 {
		t.Fatalf("missing index should yield empty index, got %v", idx)
	}
}

func TestManagerPersistAndReload(t *testing.T) {
	dir := t.TempDir()

	m := NewManager(dir)
	idx, _ := Build([][]float32{{1, 1}})
	if err := m.Persist("qa_financial", idx); err != nil {
		t.Fatal(err)
	}

	// A fresh manager over the same directory sees the persisted index.
	m2 := NewManager(dir)
	loaded := m2.Get("qa_financial")
	if loaded.Len() != 1 {
		t.Fatalf("reloaded index len = %d", loaded.Len())
	}
}

func TestManagerSwap(t *testing.T) {
	m := NewManager(t.TempDir())

	first, _ := Build([][]float32{{1}})
	second, _ := Build([][]float32{{1}, {2}})

	m.Swap("documents", first)
	if m.Get("documents").Len() != 1 {
		t.Fatal("swap did not take")
	}
	m.Swap("documents", second)
	if m.Get("documents").Len() != 2 {
		t.Fatal("second swap did not take")
	}
}
