package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Result is one nearest-neighbor hit. Distance is squared L2; Similarity
// is the bounded transform 1/(1+distance).
type Result struct {
	Ordinal    int
	Distance   float64
	Similarity float64
}

// Index is a flat squared-L2 nearest-neighbor index. Vectors are stored
// in insertion order; the ordinal returned by Search identifies the
// vector's position so callers can map hits back to their own records.
// An Index is immutable after Build/Load; concurrent Search is safe.
type Index struct {
	Dim     int
	Vectors [][]float32
}

// Build creates an index over the given vectors. All vectors must share
// the same dimension. An empty input yields a valid empty index.
func Build(vectors [][]float32) (*Index, error) {
	idx := &Index{}
	for i, v := range vectors {
		if idx.Dim == 0 {
			idx.Dim = len(v)
		}
		if len(v) != idx.Dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), idx.Dim)
		}
	}
	idx.Vectors = vectors
	return idx, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	return len(idx.Vectors)
}

// Search returns the k nearest vectors to the query by squared L2
// distance, nearest first. Fewer than k results are returned when the
// index is smaller than k. An empty index returns no results.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(idx.Vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != idx.Dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), idx.Dim)
	}

	results := make([]Result, 0, len(idx.Vectors))
	for i, v := range idx.Vectors {
		d := squaredL2(query, v)
		results = append(results, Result{
			Ordinal:    i,
			Distance:   d,
			Similarity: 1.0 / (1.0 + d),
		})
	}

	sort.Slice(results, func(a, b int) bool {
		return results[a].Distance < results[b].Distance
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Save persists the index to path with gob encoding. The write goes
// through a temp file and rename so a crash never leaves a torn index.
func (idx *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %v", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %v", err)
	}

	if err := gob.NewEncoder(file).Encode(idx); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode index: %v", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

// Load reads a gob-encoded index from path.
func Load(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var idx Index
	if err := gob.NewDecoder(file).Decode(&idx); err != nil {
		return nil, fmt.Errorf("failed to decode index %s: %v", path, err)
	}
	return &idx, nil
}
