// Package vecstore defines the boundary between document extraction and the
// vector layer: chunk and match records, and the collaborator interfaces a
// real backend plugs into at startup. The bundled Pending backend answers
// ErrNotImplemented (or nothing) for every operation, so the pipeline
// plumbing can be wired and exercised today and a live store dropped in
// later without touching it.
package vecstore

import (
	"context"
	"errors"

	"github.com/dockb/dockb/pdfextract"
)

// ErrNotImplemented is returned by the Pending backend for every operation.
var ErrNotImplemented = errors.New("vector backend not implemented")

// Chunk is one embeddable slice of an extracted document.
type Chunk struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Source    string          `json:"source"`
	Page      int             `json:"page"`
	Kind      pdfextract.Kind `json:"type"`
	Index     int             `json:"index"` // position within the document
	Embedding []float32       `json:"embedding,omitempty"`
}

// Match is one retrieval hit.
type Match struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Chunker splits extracted documents into embeddable chunks. The splitting
// strategy is a backend concern and ships with it; chunks must carry their
// document's provenance (source, page, kind).
type Chunker interface {
	SplitAll(docs []pdfextract.Document) []Chunk
}

// Embedder turns chunk text into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Store persists and searches embedded chunks.
type Store interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, vector []float32, topK int, threshold float64) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

// Pending is the placeholder backend: it produces no chunks and reports
// ErrNotImplemented for every vector operation.
type Pending struct{}

func (Pending) SplitAll([]pdfextract.Document) []Chunk { return nil }

func (Pending) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrNotImplemented
}

func (Pending) Dimension() int { return 0 }

func (Pending) Upsert(context.Context, []Chunk) error { return ErrNotImplemented }

func (Pending) Search(context.Context, []float32, int, float64) ([]Match, error) {
	return nil, ErrNotImplemented
}

func (Pending) Count(context.Context) (int, error) { return 0, ErrNotImplemented }

var (
	_ Chunker  = Pending{}
	_ Embedder = Pending{}
	_ Store    = Pending{}
)
