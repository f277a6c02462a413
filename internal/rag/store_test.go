package rag

import (
	"context"
	"math"
	"strings"
	"testing"
)

// lexicalEmbedder produces deterministic vectors from token counts so
// store behaviour can be tested without a model host.
type lexicalEmbedder struct {
	vocabulary []string
}

func newLexicalEmbedder() *lexicalEmbedder {
	return &lexicalEmbedder{vocabulary: []string{
		"proceso", "planificador", "memoria", "red", "estadistica",
	}}
}

func (e *lexicalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.vocabulary)+1)
	vec[len(e.vocabulary)] = 0.1 // keep vectors non-zero
	for i, word := range e.vocabulary {
		vec[i] = float32(strings.Count(lower, word))
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	n := float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), newLexicalEmbedder())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func seedChunks(t *testing.T, store *Store, subject string) {
	t.Helper()
	err := store.AddChunks(context.Background(), subject, []Chunk{
		{ID: "tema1-0", Content: "el proceso y el planificador del sistema", Metadata: map[string]string{"source": "tema1.pdf"}},
		{ID: "tema1-1", Content: "gestión de memoria virtual", Metadata: map[string]string{"source": "tema1.pdf"}},
		{ID: "tema2-0", Content: "protocolos de red", Metadata: map[string]string{"source": "tema2.pdf"}},
	}, 1)
	if err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
}

func TestStoreAddAndCount(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "ingenieria_de_servidores")

	if got := store.Count("ingenieria_de_servidores"); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
	if got := store.Count("asignatura_vacia"); got != 0 {
		t.Errorf("Count of unknown subject = %d, want 0", got)
	}
}

func TestStoreHasChunk(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "ingenieria_de_servidores")
	ctx := context.Background()

	if !store.HasChunk(ctx, "ingenieria_de_servidores", "tema1-0") {
		t.Error("stored chunk not found")
	}
	if store.HasChunk(ctx, "ingenieria_de_servidores", "tema9-0") {
		t.Error("phantom chunk reported present")
	}
	if store.HasChunk(ctx, "otra_asignatura", "tema1-0") {
		t.Error("chunk leaked across subjects")
	}
}

func TestStoreQueryOrdersByDistance(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "ingenieria_de_servidores")

	results, err := store.Query(context.Background(), "ingenieria_de_servidores", "el planificador de proceso", 3, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].ID != "tema1-0" {
		t.Errorf("closest chunk = %s", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not sorted by distance: %v then %v", results[i-1].Distance, results[i].Distance)
		}
	}
}

func TestStoreQueryEmptySubject(t *testing.T) {
	store := newTestStore(t)
	results, err := store.Query(context.Background(), "sin_material", "cualquier cosa", 4, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if results != nil {
		t.Errorf("want nil for empty subject, got %v", results)
	}
}

func TestStoreSubjectsLifecycle(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "estadistica")
	seedChunks(t, store, "metaheuristicas")

	subjects := store.ListSubjects()
	if len(subjects) != 2 || subjects[0] != "estadistica" || subjects[1] != "metaheuristicas" {
		t.Fatalf("subjects = %v", subjects)
	}

	if err := store.DeleteSubject("estadistica"); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	subjects = store.ListSubjects()
	if len(subjects) != 1 || subjects[0] != "metaheuristicas" {
		t.Errorf("subjects after delete = %v", subjects)
	}
}
