package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GuideSection is one titled block of a teaching guide.
type GuideSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Guide is the scraped teaching guide of a subject.
type Guide struct {
	Subject   string         `json:"subject"`
	URL       string         `json:"url"`
	ScrapedAt time.Time      `json:"scraped_at"`
	Sections  []GuideSection `json:"sections"`
}

// GuideStore persists teaching guides as one JSON file per subject.
type GuideStore struct {
	dir string
}

func NewGuideStore(dir string) *GuideStore {
	return &GuideStore{dir: dir}
}

func (g *GuideStore) path(subject string) string {
	return filepath.Join(g.dir, subject+".json")
}

// Save writes the guide for its subject, replacing any previous one.
func (g *GuideStore) Save(guide *Guide) error {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create guide directory: %w", err)
	}
	data, err := json.MarshalIndent(guide, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode guide for %s: %w", guide.Subject, err)
	}
	if err := os.WriteFile(g.path(guide.Subject), data, 0o644); err != nil {
		return fmt.Errorf("failed to write guide for %s: %w", guide.Subject, err)
	}
	return nil
}

// Load returns the stored guide for subject, or nil when none exists.
func (g *GuideStore) Load(subject string) (*Guide, error) {
	data, err := os.ReadFile(g.path(subject))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read guide for %s: %w", subject, err)
	}
	var guide Guide
	if err := json.Unmarshal(data, &guide); err != nil {
		return nil, fmt.Errorf("failed to parse guide for %s: %w", subject, err)
	}
	return &guide, nil
}

// Lookup returns guide text for a subject. With an empty section it
// returns the whole guide; otherwise it matches section titles
// case-insensitively, accepting substring matches. Unknown subjects
// and unmatched sections return the empty string.
func (g *GuideStore) Lookup(subject, section string) (string, error) {
	guide, err := g.Load(subject)
	if err != nil {
		return "", err
	}
	if guide == nil {
		return "", nil
	}

	if strings.TrimSpace(section) == "" {
		var parts []string
		for _, s := range guide.Sections {
			parts = append(parts, s.Title+"\n"+s.Content)
		}
		return strings.Join(parts, "\n\n"), nil
	}

	want := strings.ToLower(strings.TrimSpace(section))
	for _, s := range guide.Sections {
		title := strings.ToLower(s.Title)
		if title == want || strings.Contains(title, want) || strings.Contains(want, title) {
			return s.Content, nil
		}
	}
	return "", nil
}
