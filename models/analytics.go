package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionEventLog records session lifecycle events (created, cleared, ...).
type SessionEventLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID string             `bson:"session_id" json:"session_id" binding:"required"`
	UserID    string             `bson:"user_id" json:"user_id" binding:"required"`
	Subject   string             `bson:"subject" json:"subject" binding:"required"`
	EventType string             `bson:"event_type" json:"event_type" binding:"required"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// UserMessageLog records per-interaction analytics. Message and response
// bodies are stored only as lengths; the raw email never appears here.
type UserMessageLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID      string             `bson:"session_id" json:"session_id" binding:"required"`
	UserIDPartial  string             `bson:"user_id_partial" json:"user_id_partial" binding:"required"`
	Subject        string             `bson:"subject" json:"subject" binding:"required"`
	MessageLength  int                `bson:"message_length" json:"message_length"`
	QueryType      string             `bson:"query_type" json:"query_type"`
	Complexity     string             `bson:"complexity" json:"complexity"`
	ResponseLength int                `bson:"response_length" json:"response_length"`
	SourceCount    int                `bson:"source_count" json:"source_count"`
	LLMModelUsed   string             `bson:"llm_model_used" json:"llm_model_used"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

type LearningEventLog struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID       string             `bson:"session_id" json:"session_id" binding:"required"`
	EventType       string             `bson:"event_type" json:"event_type" binding:"required"`
	Topic           string             `bson:"topic" json:"topic" binding:"required"`
	ConfidenceLevel string             `bson:"confidence_level" json:"confidence_level"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
}

// ConversationMessageLog stores the actual conversation content,
// one document per user or bot message.
type ConversationMessageLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID      string             `bson:"session_id" json:"session_id" binding:"required"`
	UserID         string             `bson:"user_id" json:"user_id" binding:"required"`
	Subject        string             `bson:"subject" json:"subject" binding:"required"`
	MessageType    string             `bson:"message_type" json:"message_type" binding:"required,oneof=user bot"`
	MessageContent string             `bson:"message_content" json:"message_content" binding:"required"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

type LogResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
