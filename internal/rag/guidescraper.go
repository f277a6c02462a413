package rag

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// GuideScraper fetches a subject's public teaching guide page and
// slices it into titled sections at heading boundaries.
type GuideScraper struct {
	httpClient *http.Client
}

func NewGuideScraper() *GuideScraper {
	return &GuideScraper{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Scrape downloads the page at url and returns it as a Guide for
// subject. Text between consecutive h2/h3 headings becomes one
// section; content before the first heading is filed under
// "Descripción".
func (s *GuideScraper) Scrape(subject, url string) (*Guide, error) {
	resp, err := s.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teaching guide %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("teaching guide %s returned status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse teaching guide %s: %w", url, err)
	}

	guide := &Guide{
		Subject:   subject,
		URL:       url,
		ScrapedAt: time.Now().UTC(),
	}

	content := doc.Find("main")
	if content.Length() == 0 {
		content = doc.Find("body")
	}

	currentTitle := "Descripción"
	var currentText strings.Builder
	flush := func() {
		text := CleanText(currentText.String())
		if text != "" {
			guide.Sections = append(guide.Sections, GuideSection{
				Title:   currentTitle,
				Content: text,
			})
		}
		currentText.Reset()
	}

	content.Find("h2, h3, p, li, td").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		if goquery.NodeName(sel) == "h2" || goquery.NodeName(sel) == "h3" {
			flush()
			currentTitle = text
			return
		}
		currentText.WriteString(text)
		currentText.WriteString("\n")
	})
	flush()

	if len(guide.Sections) == 0 {
		return nil, fmt.Errorf("no sections found in teaching guide %s", url)
	}
	return guide, nil
}
