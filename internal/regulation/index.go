package regulation

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
)

// Index is a flat L2 vector index over regulation snippets. Search is an
// exhaustive scan, which is fine at regulation-corpus scale (hundreds of
// snippets, not millions).
type Index struct {
	dim      int
	vectors  [][]float32
	contents []string
	sources  []string
}

// Hit is one search result. Distance is squared L2, smaller is closer.
type Hit struct {
	Content  string
	Source   string
	Distance float32
}

// indexFile is the gob persistence format.
type indexFile struct {
	Dim      int
	Vectors  [][]float32
	Contents []string
	Sources  []string
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dim int) *Index {
	return &Index{dim: dim}
}

// Len returns the number of indexed snippets.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// Dim returns the vector dimension.
func (ix *Index) Dim() int {
	return ix.dim
}

// Add appends a snippet and its embedding to the index.
func (ix *Index) Add(vector []float32, content, source string) error {
	if len(vector) != ix.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), ix.dim)
	}
	ix.vectors = append(ix.vectors, vector)
	ix.contents = append(ix.contents, content)
	ix.sources = append(ix.sources, source)
	return nil
}

// Search returns the k nearest snippets to the query vector, ascending by
// distance. Fewer than k results are returned when the index is smaller.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	if k <= 0 {
		k = 3
	}

	hits := make([]Hit, 0, len(ix.vectors))
	for i, vec := range ix.vectors {
		hits = append(hits, Hit{
			Content:  ix.contents[i],
			Source:   ix.sources[i],
			Distance: squaredL2(query, vec),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Save writes the index to path in gob format.
func (ix *Index) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := gob.NewEncoder(f)
	if err := enc.Encode(indexFile{
		Dim:      ix.dim,
		Vectors:  ix.vectors,
		Contents: ix.contents,
		Sources:  ix.sources,
	}); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// LoadIndex reads an index previously written by Save.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var file indexFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return &Index{
		dim:      file.Dim,
		vectors:  file.Vectors,
		contents: file.Contents,
		sources:  file.Sources,
	}, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
