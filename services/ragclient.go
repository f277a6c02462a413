package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ceprud-chatbot/models"
)

// RAGClient calls the retrieval service over HTTP.
type RAGClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRAGClient(baseURL string) *RAGClient {
	return &RAGClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Search retrieves the best chunks for a query within a subject.
func (r *RAGClient) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := r.postJSON(ctx, "/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchDocuments is the retrieval surface the agent's tools use.
func (r *RAGClient) SearchDocuments(ctx context.Context, subject, query string, k int) ([]models.RetrievedDocument, error) {
	resp, err := r.Search(ctx, models.SearchRequest{Query: query, Subject: subject, K: k})
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// Guide fetches teaching guide text. An empty section returns the
// whole guide.
func (r *RAGClient) Guide(ctx context.Context, subject, section string) (string, error) {
	u := r.baseURL + "/guide/" + url.PathEscape(subject)
	if section != "" {
		u += "?section=" + url.QueryEscape(section)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpResp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("RAG service unreachable: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("RAG service returned status %d", httpResp.StatusCode)
	}
	var resp models.GuideResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode RAG response: %w", err)
	}
	return resp.Content, nil
}

// Subjects lists subjects with indexed material.
func (r *RAGClient) Subjects(ctx context.Context) (*models.SubjectsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/subjects", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpResp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RAG service unreachable: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RAG service returned status %d", httpResp.StatusCode)
	}
	var resp models.SubjectsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode RAG response: %w", err)
	}
	return &resp, nil
}

func (r *RAGClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("RAG service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("RAG service returned status %d: %s", resp.StatusCode, string(payload))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode RAG response: %w", err)
	}
	return nil
}
