package rag

import (
	"strings"
	"testing"
)

func TestSplitterShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(500, 50)
	chunks := s.Split("Un único párrafo corto sobre sistemas operativos.")
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d: %v", len(chunks), chunks)
	}
}

func TestSplitterRespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Este es un párrafo de prueba con contenido suficiente para medir. ")
		if i%4 == 3 {
			b.WriteString("\n\n")
		}
	}
	s := NewSplitter(500, 50)
	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 500 {
			t.Errorf("chunk %d exceeds size: %d bytes", i, len(c))
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSplitterPrefersParagraphBoundaries(t *testing.T) {
	p1 := strings.Repeat("a", 300)
	p2 := strings.Repeat("b", 300)
	s := NewSplitter(500, 50)
	chunks := s.Split(p1 + "\n\n" + p2)
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != p1 || chunks[1] != p2 {
		t.Errorf("paragraphs were not kept intact: lens %d %d", len(chunks[0]), len(chunks[1]))
	}
}

func TestSplitterOverlapCarriesTail(t *testing.T) {
	var sentences []string
	for i := 0; i < 30; i++ {
		sentences = append(sentences, "Frase número "+strings.Repeat("x", 20))
	}
	text := strings.Join(sentences, ". ")
	s := NewSplitter(200, 40)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		// The start of each chunk should repeat material from the end
		// of the previous one.
		head := chunks[i]
		if len(head) > 30 {
			head = head[:30]
		}
		if !strings.Contains(chunks[i-1], head) {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestSplitterHandlesUnbreakableRuns(t *testing.T) {
	s := NewSplitter(100, 10)
	chunks := s.Split(strings.Repeat("z", 450))
	if len(chunks) < 4 {
		t.Fatalf("long run not split: %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d exceeds size: %d", i, len(c))
		}
	}
}

func TestSplitterEmptyInput(t *testing.T) {
	s := NewSplitter(500, 50)
	if got := s.Split("   \n\t  "); got != nil {
		t.Errorf("want nil for blank input, got %v", got)
	}
}
