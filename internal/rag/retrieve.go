package rag

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Retriever answers similarity searches against a subject's collection
// with adaptive filtering and a lightweight lexical re-rank on top of
// the raw vector distances.
type Retriever struct {
	store *Store
}

func NewRetriever(store *Store) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns the k best chunks for the query. It over-fetches,
// filters by an adaptive distance threshold and re-ranks the survivors
// lexically before truncating.
func (r *Retriever) Retrieve(ctx context.Context, subject, query string, k int, filter map[string]string) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 4
	}
	candidates, err := r.store.Query(ctx, subject, query, 2*k, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	selected := selectByThreshold(candidates)
	reranked := rerank(query, selected)
	if len(reranked) > k {
		reranked = reranked[:k]
	}
	return reranked, nil
}

// selectByThreshold keeps candidates whose distance beats an adaptive
// cutoff derived from the candidate population. A lone candidate is
// always accepted; if the cutoff rejects everything, the two closest
// candidates survive as a fallback.
func selectByThreshold(candidates []ScoredChunk) []ScoredChunk {
	if len(candidates) <= 1 {
		return candidates
	}

	var sum float64
	for _, c := range candidates {
		sum += c.Distance
	}
	mean := sum / float64(len(candidates))

	var variance float64
	for _, c := range candidates {
		d := c.Distance - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(candidates)))

	threshold := math.Max(mean-0.3*stddev, 0.6)

	var kept []ScoredChunk
	for _, c := range candidates {
		if c.Distance < threshold {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		sorted := make([]ScoredChunk, len(candidates))
		copy(sorted, candidates)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })
		n := 2
		if len(sorted) < n {
			n = len(sorted)
		}
		return sorted[:n]
	}
	return kept
}

var structureMarkers = []string{":", "•", "-", "1.", "2.", "3.", "\n-", "\n*"}

// rerank adjusts each candidate's distance downward for lexical
// agreement with the query and for content that looks like usable
// course material, then sorts ascending.
func rerank(query string, candidates []ScoredChunk) []ScoredChunk {
	queryTokens := contentTokens(query)

	type ranked struct {
		chunk ScoredChunk
		score float64
	}
	out := make([]ranked, len(candidates))
	for i, c := range candidates {
		overlap := keywordOverlap(queryTokens, c.Content)
		length := lengthScore(c.Content)
		structure := structureScore(c.Content)
		out[i] = ranked{
			chunk: c,
			score: c.Distance - (0.15*overlap + 0.1*length + 0.05*structure),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score < out[j].score })

	result := make([]ScoredChunk, len(out))
	for i, r := range out {
		result[i] = r.chunk
	}
	return result
}

var spanishStopwords = map[string]struct{}{
	"de": {}, "la": {}, "el": {}, "en": {}, "los": {}, "las": {}, "del": {},
	"que": {}, "qué": {}, "un": {}, "una": {}, "unos": {}, "unas": {},
	"por": {}, "con": {}, "para": {}, "es": {}, "son": {}, "se": {}, "su": {},
	"sus": {}, "al": {}, "lo": {}, "como": {}, "cómo": {}, "más": {},
	"pero": {}, "sobre": {}, "este": {}, "esta": {}, "esto": {}, "entre": {},
	"cuando": {}, "cuál": {}, "cuáles": {}, "también": {}, "sin": {},
	"hay": {}, "muy": {}, "donde": {}, "dónde": {}, "ser": {}, "the": {},
	"and": {}, "for": {}, "what": {}, "how": {},
}

var reWordToken = regexp.MustCompile(`[\p{L}\p{N}]+`)

// contentTokens lowercases, tokenizes and drops stopwords and tokens
// too short to carry meaning.
func contentTokens(text string) []string {
	raw := reWordToken.FindAllString(strings.ToLower(text), -1)
	var tokens []string
	for _, t := range raw {
		if len([]rune(t)) <= 2 {
			continue
		}
		if _, stop := spanishStopwords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// keywordOverlap is the fraction of query tokens present in content.
func keywordOverlap(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentSet := make(map[string]struct{})
	for _, t := range contentTokens(content) {
		contentSet[t] = struct{}{}
	}
	matched := 0
	seen := make(map[string]struct{})
	for _, t := range queryTokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := contentSet[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

// lengthScore prefers mid-sized chunks: long enough to be substantive,
// short enough to fit a prompt comfortably.
func lengthScore(content string) float64 {
	n := len(content)
	switch {
	case n >= 200 && n <= 1500:
		return 1.0
	case n >= 100 && n < 200:
		return 0.8
	default:
		return 0.6
	}
}

// structureScore is the fraction of structural markers present in the
// content. Lists and definitions usually answer questions better than
// flat prose.
func structureScore(content string) float64 {
	found := 0
	for _, m := range structureMarkers {
		if strings.Contains(content, m) {
			found++
		}
	}
	return float64(found) / float64(len(structureMarkers))
}
