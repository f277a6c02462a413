package lti

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ceprud-chatbot/models"
	"ceprud-chatbot/utils"
)

const sessionLifetime = 8 * time.Hour

// ErrSessionInvalid covers unknown and expired session tokens.
var ErrSessionInvalid = errors.New("session invalid or expired")

// SessionManager stores launch sessions in MongoDB. A user relaunching
// from the same course inside the lifetime reuses their session; a
// launch from a different course re-stamps the session's subject so
// the token always reflects the course the user came from last.
type SessionManager struct {
	sessions *mongo.Collection
	now      func() time.Time
}

func NewSessionManager(db *mongo.Database) *SessionManager {
	return &SessionManager{
		sessions: db.Collection("lti_sessions"),
		now:      time.Now,
	}
}

// Create issues a session for a validated launch, reusing a live one
// for the same platform user when possible.
func (m *SessionManager) Create(ctx context.Context, launch *Launch) (*models.LTISession, error) {
	now := m.now().UTC()

	var existing models.LTISession
	err := m.sessions.FindOne(ctx, bson.M{
		"lti_user_id": launch.UserID,
		"expires_at":  bson.M{"$gt": now},
	}).Decode(&existing)
	if err == nil {
		update := bson.M{"$set": bson.M{
			"subject":       launch.Subject,
			"context_id":    launch.ContextID,
			"context_label": launch.ContextLabel,
			"last_activity": now,
		}}
		if _, err := m.sessions.UpdateByID(ctx, existing.ID, update); err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
		existing.Subject = launch.Subject
		existing.ContextID = launch.ContextID
		existing.ContextLabel = launch.ContextLabel
		existing.LastActivity = now
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	session := models.LTISession{
		SessionToken: token,
		UserID:       SyntheticEmail(launch.UserID),
		LTIUserID:    launch.UserID,
		Name:         launch.Name,
		ContextID:    launch.ContextID,
		ContextLabel: launch.ContextLabel,
		Subject:      launch.Subject,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(sessionLifetime),
	}
	res, err := m.sessions.InsertOne(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid
	}
	return &session, nil
}

// Validate resolves a session token, refusing expired sessions and
// touching last_activity on success.
func (m *SessionManager) Validate(ctx context.Context, token string) (*models.LTISession, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}
	now := m.now().UTC()

	var session models.LTISession
	err := m.sessions.FindOne(ctx, bson.M{"session_token": token}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if now.After(session.ExpiresAt) {
		return nil, ErrSessionInvalid
	}

	if _, err := m.sessions.UpdateByID(ctx, session.ID, bson.M{"$set": bson.M{"last_activity": now}}); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	session.LastActivity = now
	return &session, nil
}
