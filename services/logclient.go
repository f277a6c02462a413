package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ceprud-chatbot/internal/logger"
	"ceprud-chatbot/models"
)

// LogClient ships analytics events to the logging service. Every call
// is best effort: a logging outage must never fail a chat request, so
// errors are logged and swallowed.
type LogClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLogClient(baseURL string) *LogClient {
	return &LogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (l *LogClient) SessionEvent(ctx context.Context, event models.SessionEventLog) {
	l.post(ctx, "/api/v1/logs/session-event", event)
}

func (l *LogClient) UserMessage(ctx context.Context, event models.UserMessageLog) {
	l.post(ctx, "/api/v1/logs/user-message", event)
}

func (l *LogClient) LearningEvent(ctx context.Context, event models.LearningEventLog) {
	l.post(ctx, "/api/v1/logs/learning-event", event)
}

func (l *LogClient) ConversationMessage(ctx context.Context, event models.ConversationMessageLog) {
	l.post(ctx, "/api/v1/logs/conversation-message", event)
}

func (l *LogClient) post(ctx context.Context, path string, body interface{}) {
	raw, err := json.Marshal(body)
	if err != nil {
		logger.Warn("failed to marshal analytics event", "path", path, "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		logger.Warn("failed to create analytics request", "path", path, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		logger.Warn("analytics event dropped", "path", path, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logger.Warn("analytics event rejected", "path", path, "status", resp.StatusCode)
	}
}
