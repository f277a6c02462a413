package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ceprud-chatbot/models"
)

var (
	// ErrUserExists is returned by Create when the email is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when the user store has no such user.
	ErrUserNotFound = errors.New("user not found")
)

// UserClient calls the user store service over HTTP.
type UserClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewUserClient(baseURL string) *UserClient {
	return &UserClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Create registers a new user.
func (u *UserClient) Create(ctx context.Context, req models.UserCreateRequest) (*models.UserCreateResponse, error) {
	var resp models.UserCreateResponse
	if err := u.do(ctx, http.MethodPost, "/users", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login looks the user up by email.
func (u *UserClient) Login(ctx context.Context, email string) (*models.UserLoginResponse, error) {
	var resp models.UserLoginResponse
	if err := u.do(ctx, http.MethodPost, "/users/login", models.UserLoginRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile fetches a user's profile by email.
func (u *UserClient) Profile(ctx context.Context, email string) (*models.UserProfileResponse, error) {
	var resp models.UserProfileResponse
	if err := u.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile applies a partial profile update.
func (u *UserClient) UpdateProfile(ctx context.Context, email string, req models.UserProfileUpdateRequest) error {
	return u.do(ctx, http.MethodPut, "/users/"+url.PathEscape(email), req, nil)
}

// AddSubject enrolls the user in a subject.
func (u *UserClient) AddSubject(ctx context.Context, email, subjectID string) error {
	return u.do(ctx, http.MethodPost, "/users/subjects", models.AddSubjectRequest{Email: email, SubjectID: subjectID}, nil)
}

// RemoveSubject drops a subject from the user's enrollment list.
func (u *UserClient) RemoveSubject(ctx context.Context, email, subjectID string) error {
	path := "/users/" + url.PathEscape(email) + "/subjects/" + url.PathEscape(subjectID)
	return u.do(ctx, http.MethodDelete, path, nil, nil)
}

// Subjects returns the subjects a user is enrolled in.
func (u *UserClient) Subjects(ctx context.Context, email string) (*models.UserSubjectsResponse, error) {
	var resp models.UserSubjectsResponse
	if err := u.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email)+"/subjects", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EnsureSubject registers a user (creating it on first contact) and
// adds the subject to their enrollment list. Called on LTI launches so
// Moodle users exist before their first question.
func (u *UserClient) EnsureSubject(ctx context.Context, email, name, subject string) error {
	_, err := u.Create(ctx, models.UserCreateRequest{Email: email, Name: name, Role: "student"})
	// A conflict means the user already exists, which is fine here.
	if err != nil && !errors.Is(err, ErrUserExists) {
		return err
	}
	return u.AddSubject(ctx, email, subject)
}

func (u *UserClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("user service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrUserExists
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode >= 300:
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("user service returned status %d: %s", resp.StatusCode, string(payload))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode user response: %w", err)
		}
	}
	return nil
}
