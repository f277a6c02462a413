package rag

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const guidePage = `<!DOCTYPE html>
<html>
<body>
<main>
<p>Guía docente de la asignatura.</p>
<h2>Evaluación</h2>
<p>Examen final: 60%</p>
<li>Prácticas: 40%</li>
<h2>Temario</h2>
<p>Tema 1: introducción</p>
<p>Tema 2: análisis</p>
<h3>Bibliografía</h3>
<p>Manual de la asignatura</p>
</main>
</body>
</html>`

func TestScrapeSplitsAtHeadings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(guidePage))
	}))
	defer srv.Close()

	guide, err := NewGuideScraper().Scrape("estadistica", srv.URL)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if guide.Subject != "estadistica" || guide.URL != srv.URL {
		t.Errorf("guide metadata = %+v", guide)
	}
	if len(guide.Sections) != 4 {
		t.Fatalf("sections = %d: %+v", len(guide.Sections), guide.Sections)
	}

	titles := make([]string, len(guide.Sections))
	for i, s := range guide.Sections {
		titles[i] = s.Title
	}
	want := []string{"Descripción", "Evaluación", "Temario", "Bibliografía"}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("section %d title = %q, want %q", i, titles[i], want[i])
		}
	}

	if !strings.Contains(guide.Sections[1].Content, "Examen final") ||
		!strings.Contains(guide.Sections[1].Content, "Prácticas") {
		t.Errorf("evaluation section = %q", guide.Sections[1].Content)
	}
	if !strings.Contains(guide.Sections[2].Content, "Tema 2") {
		t.Errorf("temario section = %q", guide.Sections[2].Content)
	}
}

func TestScrapeFailsOnHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewGuideScraper().Scrape("estadistica", srv.URL); err == nil {
		t.Fatal("scrape of a 404 page succeeded")
	}
}

func TestScrapeFailsOnEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer srv.Close()

	if _, err := NewGuideScraper().Scrape("estadistica", srv.URL); err == nil {
		t.Fatal("scrape of an empty page succeeded")
	}
}
