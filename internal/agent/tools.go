package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ceprud-chatbot/internal/llm"
	"ceprud-chatbot/models"
)

// MaterialSearcher retrieves course material fragments for a query.
type MaterialSearcher interface {
	SearchDocuments(ctx context.Context, subject, query string, k int) ([]models.RetrievedDocument, error)
}

// GuideReader looks up teaching guide text for a subject.
type GuideReader interface {
	Guide(ctx context.Context, subject, section string) (string, error)
}

// ToolResult is what a tool execution hands back to the loop: the text
// for the model plus any source documents consulted.
type ToolResult struct {
	Content string
	Sources []string
}

type toolFunc func(ctx context.Context, subject string, args json.RawMessage) (*ToolResult, error)

// Toolbox holds the tools offered to the model. The active subject is
// injected per call by the loop, never chosen by the model.
type Toolbox struct {
	searcher   MaterialSearcher
	guides     GuideReader
	retrievalK int
	funcs      map[string]toolFunc
	defs       []llm.Tool
}

func NewToolbox(searcher MaterialSearcher, guides GuideReader, retrievalK int) *Toolbox {
	if retrievalK <= 0 {
		retrievalK = 4
	}
	tb := &Toolbox{
		searcher:   searcher,
		guides:     guides,
		retrievalK: retrievalK,
	}
	tb.funcs = map[string]toolFunc{
		"search_course_materials": tb.searchCourseMaterials,
		"get_teaching_guide":      tb.getTeachingGuide,
	}
	tb.defs = []llm.Tool{
		{
			Type: "function",
			Function: llm.ToolDefinition{
				Name:        "search_course_materials",
				Description: "Busca en los apuntes y materiales de la asignatura los fragmentos más relevantes para una consulta.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "Consulta en lenguaje natural sobre el contenido de la asignatura.",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.ToolDefinition{
				Name:        "get_teaching_guide",
				Description: "Consulta la guía docente oficial de la asignatura: evaluación, temario, bibliografía, profesorado.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"section": map[string]any{
							"type":        "string",
							"description": "Sección de la guía docente a consultar. Vacío devuelve la guía completa.",
						},
					},
				},
			},
		},
	}
	return tb
}

// Definitions returns the tool schemas to advertise to the model.
func (tb *Toolbox) Definitions() []llm.Tool {
	return tb.defs
}

// Execute runs the named tool for subject. Failures come back as tool
// output rather than aborting the turn, so the model can recover.
func (tb *Toolbox) Execute(ctx context.Context, subject, name string, args json.RawMessage) *ToolResult {
	fn, ok := tb.funcs[name]
	if !ok {
		return &ToolResult{Content: fmt.Sprintf("herramienta desconocida: %s", name)}
	}
	result, err := fn(ctx, subject, args)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("la herramienta %s falló: %v", name, err)}
	}
	return result
}

func (tb *Toolbox) searchCourseMaterials(ctx context.Context, subject string, args json.RawMessage) (*ToolResult, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(params.Query) == "" {
		return &ToolResult{Content: "la consulta está vacía"}, nil
	}

	docs, err := tb.searcher.SearchDocuments(ctx, subject, params.Query, tb.retrievalK)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &ToolResult{Content: "no se encontró contenido relevante en los materiales de la asignatura"}, nil
	}

	var b strings.Builder
	var sources []string
	for i, d := range docs {
		source := d.Metadata["source"]
		if source == "" {
			source = "N/A"
		} else {
			sources = append(sources, source)
		}
		fmt.Fprintf(&b, "[Fragmento %d | %s]\n%s\n\n", i+1, source, d.Content)
	}
	return &ToolResult{Content: strings.TrimSpace(b.String()), Sources: sources}, nil
}

func (tb *Toolbox) getTeachingGuide(ctx context.Context, subject string, args json.RawMessage) (*ToolResult, error) {
	var params struct {
		Section string `json:"section"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	text, err := tb.guides.Guide(ctx, subject, params.Section)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return &ToolResult{Content: "no hay información de la guía docente para esa consulta"}, nil
	}
	return &ToolResult{Content: text, Sources: []string{"guia_docente"}}, nil
}
