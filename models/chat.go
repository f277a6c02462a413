package models

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
	Subject string `json:"subject" binding:"max=50"`
	Email   string `json:"email" binding:"max=100"`
	Mode    string `json:"mode"`
}

// ChatResponse is returned by POST /chat on success.
type ChatResponse struct {
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
	ModelUsed string   `json:"model_used"`
	SessionID string   `json:"session_id"`
	QueryType string   `json:"query_type"`
}

type ClearSessionRequest struct {
	Subject string `json:"subject" binding:"required,max=50"`
	Email   string `json:"email" binding:"required,max=100"`
}

type ClearSessionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// RateLimitExceededResponse is the structured 429 body.
type RateLimitExceededResponse struct {
	Error             string `json:"error"`
	RequestsMade      int    `json:"requests_made"`
	RequestsRemaining int    `json:"requests_remaining"`
	ResetTime         int64  `json:"reset_time"`
	RetryAfter        int64  `json:"retry_after"`
}

// RateLimitStatus is returned by the rate-limit introspection endpoints.
type RateLimitStatus struct {
	RequestsMade      int    `json:"requests_made"`
	RequestsRemaining int    `json:"requests_remaining"`
	ResetTime         int64  `json:"reset_time"`
	UserIdentifier    string `json:"user_identifier"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}
