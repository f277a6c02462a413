package agent

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"ceprud-chatbot/internal/llm"
)

// fakeModel returns scripted messages in order.
type fakeModel struct {
	script []llm.Message
	calls  [][]llm.Message
}

func (f *fakeModel) Generate(_ context.Context, messages []llm.Message, _ []llm.Tool) (*llm.Message, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	f.calls = append(f.calls, snapshot)
	if len(f.script) == 0 {
		msg := llm.Message{Role: "assistant", Content: "respuesta por defecto"}
		return &msg, nil
	}
	msg := f.script[0]
	f.script = f.script[1:]
	return &msg, nil
}

// fakeTools records executions and returns a fixed result.
type fakeTools struct {
	executed []string
	result   *ToolResult
}

func (f *fakeTools) Definitions() []llm.Tool { return nil }

func (f *fakeTools) Execute(_ context.Context, _, name string, _ json.RawMessage) *ToolResult {
	f.executed = append(f.executed, name)
	if f.result != nil {
		return f.result
	}
	return &ToolResult{Content: "resultado"}
}

func newTestAgent(t *testing.T, model llm.Generator, tools ToolExecutor) *Agent {
	t.Helper()
	store, err := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewCheckpointStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(model, tools, store)
}

func toolCallMsg(name, args string) llm.Message {
	return llm.Message{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{{
			ID:       "call-1",
			Type:     "function",
			Function: llm.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestAskDirectAnswer(t *testing.T) {
	model := &fakeModel{script: []llm.Message{{Role: "assistant", Content: "Hola, soy el asistente."}}}
	agent := newTestAgent(t, model, &fakeTools{})

	reply, err := agent.Ask(context.Background(), "alice@ugr.es-metaheuristicas", "metaheuristicas", "hola")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Answer != "Hola, soy el asistente." {
		t.Errorf("answer = %q", reply.Answer)
	}
	if len(reply.Sources) != 0 {
		t.Errorf("direct answer should have no sources, got %v", reply.Sources)
	}
}

func TestAskRunsRequestedTools(t *testing.T) {
	model := &fakeModel{script: []llm.Message{
		toolCallMsg("search_course_materials", `{"query":"algoritmos genéticos"}`),
		{Role: "assistant", Content: "Los algoritmos genéticos son..."},
	}}
	tools := &fakeTools{result: &ToolResult{Content: "contenido", Sources: []string{"tema3.pdf", "tema3.pdf", "tema4.pdf"}}}
	agent := newTestAgent(t, model, tools)

	reply, err := agent.Ask(context.Background(), "t1", "metaheuristicas", "¿qué son los algoritmos genéticos?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(tools.executed) != 1 || tools.executed[0] != "search_course_materials" {
		t.Errorf("executed tools = %v", tools.executed)
	}
	if got, want := reply.Sources, []string{"tema3.pdf", "tema4.pdf"}; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("sources = %v, want %v", got, want)
	}

	// The second model call must see the tool output.
	last := model.calls[1]
	found := false
	for _, m := range last {
		if m.Role == "tool" && m.Content == "contenido" {
			found = true
		}
	}
	if !found {
		t.Error("tool result was not fed back to the model")
	}
}

func TestAskRoundLimit(t *testing.T) {
	var script []llm.Message
	for i := 0; i < 10; i++ {
		script = append(script, toolCallMsg("search_course_materials", `{"query":"q"}`))
	}
	model := &fakeModel{script: script}
	tools := &fakeTools{}
	agent := newTestAgent(t, model, tools)

	reply, err := agent.Ask(context.Background(), "t2", "estadistica", "pregunta")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(model.calls) != maxRounds {
		t.Errorf("model called %d times, want %d", len(model.calls), maxRounds)
	}
	if !strings.Contains(reply.Answer, "reformula") {
		t.Errorf("expected fallback answer, got %q", reply.Answer)
	}
}

func TestAskResumesHistory(t *testing.T) {
	model := &fakeModel{script: []llm.Message{
		{Role: "assistant", Content: "primera respuesta"},
		{Role: "assistant", Content: "segunda respuesta"},
	}}
	agent := newTestAgent(t, model, &fakeTools{})
	ctx := context.Background()

	if _, err := agent.Ask(ctx, "t3", "estadistica", "primera pregunta"); err != nil {
		t.Fatalf("Ask 1: %v", err)
	}
	if _, err := agent.Ask(ctx, "t3", "estadistica", "segunda pregunta"); err != nil {
		t.Fatalf("Ask 2: %v", err)
	}

	second := model.calls[1]
	// system + q1 + a1 + q2
	if len(second) != 4 {
		t.Fatalf("second call saw %d messages, want 4", len(second))
	}
	if second[0].Role != "system" {
		t.Errorf("history must start with the system prompt, got %q", second[0].Role)
	}
	if second[1].Content != "primera pregunta" || second[2].Content != "primera respuesta" {
		t.Errorf("earlier exchange missing: %+v", second[1:3])
	}
	if second[3].Content != "segunda pregunta" {
		t.Errorf("new question missing: %+v", second[3])
	}
}

func TestClearResetsThread(t *testing.T) {
	model := &fakeModel{script: []llm.Message{
		{Role: "assistant", Content: "respuesta"},
		{Role: "assistant", Content: "otra"},
	}}
	agent := newTestAgent(t, model, &fakeTools{})
	ctx := context.Background()

	if _, err := agent.Ask(ctx, "t4", "estadistica", "pregunta"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if err := agent.Clear(ctx, "t4"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := agent.Ask(ctx, "t4", "estadistica", "nueva pregunta"); err != nil {
		t.Fatalf("Ask after Clear: %v", err)
	}

	// After clearing, the model sees a fresh conversation.
	fresh := model.calls[1]
	if len(fresh) != 2 || fresh[0].Role != "system" || fresh[1].Content != "nueva pregunta" {
		t.Errorf("thread not reset: %+v", fresh)
	}
}

func TestThreadsAreIndependent(t *testing.T) {
	model := &fakeModel{}
	agent := newTestAgent(t, model, &fakeTools{})
	ctx := context.Background()

	if _, err := agent.Ask(ctx, ThreadID("a@ugr.es", "estadistica"), "estadistica", "p1"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if _, err := agent.Ask(ctx, ThreadID("b@ugr.es", "estadistica"), "estadistica", "p2"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	second := model.calls[1]
	if len(second) != 2 {
		t.Errorf("threads leaked history across users: %d messages", len(second))
	}
}

func TestCheckpointSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoints.db")
	ctx := context.Background()

	store, err := NewCheckpointStore(path)
	if err != nil {
		t.Fatalf("NewCheckpointStore: %v", err)
	}
	msgs := []llm.Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}}
	if err := store.Save(ctx, "thread", msgs); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.Close()

	reopened, err := NewCheckpointStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Load(ctx, "thread")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[1].Content != "u" {
		t.Errorf("checkpoint lost across reopen: %+v", got)
	}
}
