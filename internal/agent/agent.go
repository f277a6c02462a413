package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"ceprud-chatbot/internal/llm"
	"ceprud-chatbot/internal/logger"
)

// maxRounds caps model/tool alternations per question so a model that
// keeps requesting tools cannot loop forever.
const maxRounds = 6

// ToolExecutor is the tool surface the loop drives.
type ToolExecutor interface {
	Definitions() []llm.Tool
	Execute(ctx context.Context, subject, name string, args json.RawMessage) *ToolResult
}

// Reply is the agent's answer to one question.
type Reply struct {
	Answer  string
	Sources []string
}

// Agent runs the question answering loop: the model either answers
// directly or requests tools, whose results are fed back until it
// produces a final answer.
type Agent struct {
	model       llm.Generator
	tools       ToolExecutor
	checkpoints *CheckpointStore

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

func New(model llm.Generator, tools ToolExecutor, checkpoints *CheckpointStore) *Agent {
	return &Agent{
		model:       model,
		tools:       tools,
		checkpoints: checkpoints,
		threads:     make(map[string]*sync.Mutex),
	}
}

// ThreadID identifies one (user, subject) conversation.
func ThreadID(email, subject string) string {
	return email + "-" + subject
}

// threadLock returns the mutex that serializes a single thread.
// Different threads proceed concurrently.
func (a *Agent) threadLock(threadID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		a.threads[threadID] = lock
	}
	return lock
}

func systemPrompt(subject string) string {
	return fmt.Sprintf(
		"Eres el asistente docente virtual del CEPRUD para la asignatura %q. "+
			"Responde siempre en español, de forma clara y pedagógica. "+
			"Usa search_course_materials para preguntas sobre el contenido de la asignatura "+
			"y get_teaching_guide para preguntas sobre evaluación, temario, bibliografía o profesorado. "+
			"Si los materiales no cubren la pregunta, dilo honestamente en lugar de inventar una respuesta.",
		strings.ReplaceAll(subject, "_", " "))
}

// Ask answers question inside the thread's conversation. History is
// restored from the checkpoint, extended with this exchange and saved
// back, so follow-up questions keep their context across restarts.
func (a *Agent) Ask(ctx context.Context, threadID, subject, question string) (*Reply, error) {
	lock := a.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	history, err := a.checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		history = []llm.Message{{Role: "system", Content: systemPrompt(subject)}}
	}
	history = append(history, llm.Message{Role: "user", Content: question})

	var sources []string
	var answer string

	for round := 0; round < maxRounds; round++ {
		msg, err := a.model.Generate(ctx, history, a.tools.Definitions())
		if err != nil {
			return nil, err
		}
		history = append(history, *msg)

		if len(msg.ToolCalls) == 0 {
			answer = msg.Content
			break
		}

		for _, call := range msg.ToolCalls {
			result := a.tools.Execute(ctx, subject, call.Function.Name, json.RawMessage(call.Function.Arguments))
			sources = append(sources, result.Sources...)
			history = append(history, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    result.Content,
			})
		}
	}

	if answer == "" {
		logger.Warn("agent hit round limit without a final answer", "thread_id", threadID)
		answer = "No he podido elaborar una respuesta completa. Por favor, reformula tu pregunta."
		history = append(history, llm.Message{Role: "assistant", Content: answer})
	}

	if err := a.checkpoints.Save(ctx, threadID, history); err != nil {
		// The user already has an answer; losing the checkpoint only
		// costs follow-up context.
		logger.Error("failed to save conversation checkpoint", "thread_id", threadID, "error", err)
	}

	return &Reply{Answer: answer, Sources: dedupe(sources)}, nil
}

// Clear forgets the thread's conversation. The next question starts
// from a fresh system prompt.
func (a *Agent) Clear(ctx context.Context, threadID string) error {
	lock := a.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()
	return a.checkpoints.Delete(ctx, threadID)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
