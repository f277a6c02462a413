// Package analytics provides lightweight, pure classification used only
// for analytics records. Nothing here gates answer generation.
package analytics

import "strings"

// Query type cue sets, matched as lowercase substrings.
var (
	questionWords   = []string{"qué", "cómo", "cuándo", "dónde", "por qué", "quién", "cuál"}
	definitionWords = []string{"define", "definir", "concepto", "significado", "qué es"}
	exampleWords    = []string{"ejemplo", "ejemplos", "caso", "casos", "muestra", "ilustra"}
	problemWords    = []string{"problema", "resolver", "solución", "cálculo", "calcular", "ejercicio"}
	comparisonWords = []string{"diferencia", "comparar", "versus", "vs", "mejor", "peor"}
)

var (
	complexWords = []string{
		"análisis", "evaluar", "comparar", "contrastar", "justificar",
		"argumentar", "demostrar", "optimizar", "integrar", "sintetizar",
	}
	mediumWords = []string{
		"explicar", "describir", "identificar", "clasificar", "aplicar",
		"resolver", "calcular", "determinar", "establecer",
	}
)

// ClassifyQueryType buckets a query for interaction analytics.
func ClassifyQueryType(query string) string {
	lower := strings.ToLower(query)

	if containsAny(lower, questionWords) || strings.Contains(query, "?") {
		return "question"
	}
	if containsAny(lower, definitionWords) {
		return "definition"
	}
	if containsAny(lower, exampleWords) {
		return "example"
	}
	if containsAny(lower, problemWords) {
		return "problem_solving"
	}
	if containsAny(lower, comparisonWords) {
		return "comparison"
	}
	return "general"
}

// EstimateComplexity returns "simple", "medium" or "complex" based on
// word count and cue words.
func EstimateComplexity(query string) string {
	wordCount := len(strings.Fields(query))
	lower := strings.ToLower(query)

	if wordCount > 20 || containsAny(lower, complexWords) {
		return "complex"
	}
	if wordCount > 10 || containsAny(lower, mediumWords) {
		return "medium"
	}
	return "simple"
}

// DedupeSources removes duplicate source names preserving order.
func DedupeSources(sources []string) []string {
	if len(sources) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(sources))
	unique := make([]string, 0, len(sources))
	for _, s := range sources {
		if !seen[s] {
			seen[s] = true
			unique = append(unique, s)
		}
	}
	return unique
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
