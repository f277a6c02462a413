package rag

import (
	"context"
	"fmt"
	"sort"

	chromem "github.com/philippgille/chromem-go"
)

// Chunk is a stored fragment of course material.
type Chunk struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// ScoredChunk is a retrieved fragment with its distance from the
// query. Distance is 1 - cosine similarity, so lower is closer.
type ScoredChunk struct {
	Chunk
	Distance float64
}

// Embedder produces a vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store keeps one persistent vector collection per subject under a
// base directory.
type Store struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
}

func NewStore(basePath string, embedder Embedder) (*Store, error) {
	db, err := chromem.NewPersistentDB(basePath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store at %s: %w", basePath, err)
	}
	return &Store{
		db: db,
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return embedder.Embed(ctx, text)
		},
	}, nil
}

func (s *Store) collection(subject string) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(subject, nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", subject, err)
	}
	return col, nil
}

// Count returns the number of chunks stored for subject.
func (s *Store) Count(subject string) int {
	col := s.db.GetCollection(subject, s.embedFunc)
	if col == nil {
		return 0
	}
	return col.Count()
}

// HasChunk reports whether a chunk with the given id is already stored.
func (s *Store) HasChunk(ctx context.Context, subject, id string) bool {
	col := s.db.GetCollection(subject, s.embedFunc)
	if col == nil {
		return false
	}
	_, err := col.GetByID(ctx, id)
	return err == nil
}

// AddChunks embeds and stores chunks in the subject's collection.
func (s *Store) AddChunks(ctx context.Context, subject string, chunks []Chunk, concurrency int) error {
	if len(chunks) == 0 {
		return nil
	}
	col, err := s.collection(subject)
	if err != nil {
		return err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
		}
	}
	if err := col.AddDocuments(ctx, docs, concurrency); err != nil {
		return fmt.Errorf("failed to add documents to %s: %w", subject, err)
	}
	return nil
}

// Query returns up to n chunks nearest to the query, closest first.
// where filters on metadata equality when non-empty.
func (s *Store) Query(ctx context.Context, subject, query string, n int, where map[string]string) ([]ScoredChunk, error) {
	col := s.db.GetCollection(subject, s.embedFunc)
	if col == nil {
		return nil, nil
	}
	total := col.Count()
	if total == 0 {
		return nil, nil
	}
	if n > total {
		n = total
	}
	results, err := col.Query(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed for %s: %w", subject, err)
	}
	scored := make([]ScoredChunk, len(results))
	for i, r := range results {
		scored[i] = ScoredChunk{
			Chunk: Chunk{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Distance: 1 - float64(r.Similarity),
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	return scored, nil
}

// ListSubjects returns the names of all collections, sorted.
func (s *Store) ListSubjects() []string {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeleteSubject removes a subject's collection entirely.
func (s *Store) DeleteSubject(subject string) error {
	if err := s.db.DeleteCollection(subject); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", subject, err)
	}
	return nil
}
