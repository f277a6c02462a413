package rag

import (
	"strings"
	"testing"
)

func chunkAt(id string, distance float64, content string) ScoredChunk {
	return ScoredChunk{
		Chunk:    Chunk{ID: id, Content: content, Metadata: map[string]string{"source": id}},
		Distance: distance,
	}
}

func ids(chunks []ScoredChunk) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, c.ID)
	}
	return out
}

func TestSelectByThresholdSingleCandidate(t *testing.T) {
	in := []ScoredChunk{chunkAt("a", 1.4, "lejano pero único")}
	got := selectByThreshold(in)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("single candidate must be accepted, got %v", ids(got))
	}
}

func TestSelectByThresholdKeepsCloseOnes(t *testing.T) {
	// mean 0.75, stddev ~0.25: threshold max(0.675, 0.6) = 0.675.
	in := []ScoredChunk{
		chunkAt("cerca1", 0.5, "x"),
		chunkAt("cerca2", 0.5, "x"),
		chunkAt("lejos1", 1.0, "x"),
		chunkAt("lejos2", 1.0, "x"),
	}
	got := selectByThreshold(in)
	if len(got) != 2 {
		t.Fatalf("want 2 kept, got %v", ids(got))
	}
	for _, c := range got {
		if c.Distance >= 0.675 {
			t.Errorf("kept chunk %s beyond threshold (%.3f)", c.ID, c.Distance)
		}
	}
}

func TestSelectByThresholdFloorAt06(t *testing.T) {
	// All candidates tightly clustered below 0.6: threshold floors at
	// 0.6 and keeps them all instead of filtering on noise.
	in := []ScoredChunk{
		chunkAt("a", 0.30, "x"),
		chunkAt("b", 0.31, "x"),
		chunkAt("c", 0.32, "x"),
	}
	got := selectByThreshold(in)
	if len(got) != 3 {
		t.Fatalf("floor should keep all clustered candidates, got %v", ids(got))
	}
}

func TestSelectByThresholdFallbackTwoBest(t *testing.T) {
	// Identical distances above the floor: nothing beats the
	// threshold, so the two closest survive.
	in := []ScoredChunk{
		chunkAt("a", 0.9, "x"),
		chunkAt("b", 0.9, "x"),
		chunkAt("c", 0.9, "x"),
		chunkAt("d", 0.9, "x"),
	}
	got := selectByThreshold(in)
	if len(got) != 2 {
		t.Fatalf("fallback should keep exactly 2, got %v", ids(got))
	}
}

func TestRerankPrefersKeywordMatches(t *testing.T) {
	query := "¿Qué es la planificación de procesos?"
	in := []ScoredChunk{
		chunkAt("generico", 0.50, strings.Repeat("Texto genérico sobre otros temas sin relación alguna. ", 6)),
		chunkAt("relevante", 0.52, "La planificación de procesos asigna la CPU:\n- planificación apropiativa\n- planificación no apropiativa. "+strings.Repeat("Detalle adicional del tema. ", 8)),
	}
	got := rerank(query, in)
	if got[0].ID != "relevante" {
		t.Errorf("lexical agreement should outrank a small distance gap, got order %v", ids(got))
	}
}

func TestRerankStableWithoutSignal(t *testing.T) {
	content := strings.Repeat("palabra neutra ", 20)
	in := []ScoredChunk{
		chunkAt("primero", 0.4, content),
		chunkAt("segundo", 0.4, content),
	}
	got := rerank("consulta sin coincidencias", in)
	if got[0].ID != "primero" || got[1].ID != "segundo" {
		t.Errorf("equal scores must keep input order, got %v", ids(got))
	}
}

func TestContentTokensDropsStopwordsAndShortTokens(t *testing.T) {
	tokens := contentTokens("¿Qué es la planificación de un proceso en el sistema?")
	for _, tok := range tokens {
		if len([]rune(tok)) <= 2 {
			t.Errorf("short token survived: %q", tok)
		}
		if _, stop := spanishStopwords[tok]; stop {
			t.Errorf("stopword survived: %q", tok)
		}
	}
	joined := strings.Join(tokens, " ")
	if !strings.Contains(joined, "planificación") || !strings.Contains(joined, "proceso") {
		t.Errorf("content words missing from %v", tokens)
	}
}

func TestLengthScoreBands(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{500, 1.0},
		{150, 0.8},
		{50, 0.6},
		{2000, 0.6},
	}
	for _, c := range cases {
		if got := lengthScore(strings.Repeat("a", c.n)); got != c.want {
			t.Errorf("lengthScore(%d chars) = %v, want %v", c.n, got, c.want)
		}
	}
}
