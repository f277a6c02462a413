package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ceprud-chatbot/models"
)

func TestLogClientDeliversEvents(t *testing.T) {
	var gotPath string
	var gotEvent models.UserMessageLog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotEvent)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewLogClient(srv.URL)
	client.UserMessage(context.Background(), models.UserMessageLog{
		SessionID:     "s1",
		UserIDPartial: "abcd1234...",
		Subject:       "estadistica",
		MessageLength: 42,
		Timestamp:     time.Now().UTC(),
	})

	if gotPath != "/api/v1/logs/user-message" {
		t.Errorf("path = %q", gotPath)
	}
	if gotEvent.SessionID != "s1" || gotEvent.MessageLength != 42 {
		t.Errorf("event = %+v", gotEvent)
	}
}

func TestLogClientSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewLogClient(srv.URL)
	// Must not panic or block; failures are logged and dropped.
	client.SessionEvent(context.Background(), models.SessionEventLog{SessionID: "s1"})

	unreachable := NewLogClient("http://127.0.0.1:1")
	unreachable.LearningEvent(context.Background(), models.LearningEventLog{SessionID: "s1"})
}
