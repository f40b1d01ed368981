// Package knowledge is the shared content store filled by page visits and
// document indexing and queried by similarity.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/m2tx/benchagent/internal/log"
)

const DefaultChunkSize = 2048

var ErrEmptyDocument = errors.New("knowledge: document has no text")

// Document is a piece of content before chunking.
type Document struct {
	Title    string
	URL      string
	Source   string
	Text     string
	Markdown bool
}

// Chunk is one stored unit. ID is the fingerprint of Text, so identical
// content is stored once.
type Chunk struct {
	ID        string    `bson:"_id" json:"id"`
	Text      string    `bson:"text" json:"text"`
	Title     string    `bson:"title,omitempty" json:"title,omitempty"`
	URL       string    `bson:"url,omitempty" json:"url,omitempty"`
	Source    string    `bson:"source,omitempty" json:"source,omitempty"`
	Embedding []float32 `bson:"embedding" json:"-"`
}

// Match is a chunk ranked against a query.
type Match struct {
	Chunk
	Score float32 `json:"score"`
}

// Store persists chunks and ranks them against a query vector. Add must be
// idempotent per chunk ID and safe for concurrent use.
type Store interface {
	Add(ctx context.Context, chunks []Chunk) (int, error)
	Query(ctx context.Context, vector []float32, n int, minScore float32) ([]Match, error)
}

// Embedder turns texts into vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Fingerprint identifies content by the sha256 of its text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Base combines a store with the embedder used for both writes and queries.
type Base struct {
	store     Store
	embedder  Embedder
	chunkSize int
}

func New(store Store, embedder Embedder) *Base {
	return &Base{store: store, embedder: embedder, chunkSize: DefaultChunkSize}
}

// Ingest chunks, embeds and stores doc. It returns the number of new chunks.
func (b *Base) Ingest(ctx context.Context, doc Document) (int, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return 0, ErrEmptyDocument
	}

	var texts []string
	if doc.Markdown {
		texts = SplitMarkdown(doc.Text, b.chunkSize)
	} else {
		texts = SplitSentences(doc.Text, b.chunkSize)
	}
	if len(texts) == 0 {
		return 0, ErrEmptyDocument
	}

	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("knowledge: embed %q: %w", doc.Source, err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("knowledge: embed %q: got %d vectors for %d chunks", doc.Source, len(vectors), len(texts))
	}

	chunks := make([]Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, Chunk{
			ID:        Fingerprint(text),
			Text:      text,
			Title:     doc.Title,
			URL:       doc.URL,
			Source:    doc.Source,
			Embedding: vectors[i],
		})
	}

	added, err := b.store.Add(ctx, chunks)
	if err != nil {
		return added, fmt.Errorf("knowledge: store %q: %w", doc.Source, err)
	}
	log.Debugf("knowledge: %s: %d chunks, %d new", doc.Source, len(chunks), added)
	return added, nil
}

// Search returns up to n chunks scoring at least minScore, best first.
func (b *Base) Search(ctx context.Context, query string, n int, minScore float32) ([]Match, error) {
	vectors, err := b.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("knowledge: embed query: got %d vectors", len(vectors))
	}
	return b.store.Query(ctx, vectors[0], n, minScore)
}

// rank scores candidates, drops those below minScore and keeps the best n.
func rank(vector []float32, candidates []Chunk, n int, minScore float32) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := cosineSimilarity(vector, c.Embedding)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{Chunk: c, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if n > 0 && n < len(matches) {
		matches = matches[:n]
	}
	return matches
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
