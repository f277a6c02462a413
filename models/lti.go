package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LTISession links a validated Moodle launch to a chatbot subject.
// Looked up by session_token on every front-end request.
type LTISession struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SessionToken string             `bson:"session_token" json:"session_token"`
	UserID       string             `bson:"user_id" json:"user_id"`
	LTIUserID    string             `bson:"lti_user_id" json:"lti_user_id"`
	Name         string             `bson:"name" json:"name"`
	ContextID    string             `bson:"context_id" json:"context_id"`
	ContextLabel string             `bson:"context_label" json:"context_label"`
	Subject      string             `bson:"subject" json:"subject"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastActivity time.Time          `bson:"last_activity" json:"last_activity"`
	ExpiresAt    time.Time          `bson:"expires_at" json:"expires_at"`
}

type SessionValidateResponse struct {
	User         SessionUser `json:"user"`
	Subject      string      `json:"subject"`
	ContextLabel string      `json:"context_label"`
	LTIUserID    string      `json:"lti_user_id"`
	ExpiresAt    string      `json:"expires_at"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
