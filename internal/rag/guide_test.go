package rag

import (
	"strings"
	"testing"
	"time"
)

func testGuideStore(t *testing.T) *GuideStore {
	t.Helper()
	store := NewGuideStore(t.TempDir())
	err := store.Save(&Guide{
		Subject:   "ingenieria_de_servidores",
		URL:       "local",
		ScrapedAt: time.Now().UTC(),
		Sections: []GuideSection{
			{Title: "Evaluación", Content: "Examen final 60%, prácticas 40%."},
			{Title: "Temario Teórico", Content: "Tema 1: introducción. Tema 2: rendimiento."},
		},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return store
}

func TestGuideLookupWholeGuide(t *testing.T) {
	store := testGuideStore(t)
	got, err := store.Lookup("ingenieria_de_servidores", "")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !strings.Contains(got, "Examen final") || !strings.Contains(got, "Tema 2") {
		t.Errorf("whole guide missing sections: %q", got)
	}
}

func TestGuideLookupSectionCaseInsensitive(t *testing.T) {
	store := testGuideStore(t)
	for _, section := range []string{"evaluación", "EVALUACIÓN", "Evaluación"} {
		got, err := store.Lookup("ingenieria_de_servidores", section)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", section, err)
		}
		if !strings.Contains(got, "Examen final") {
			t.Errorf("Lookup(%q) = %q", section, got)
		}
	}
}

func TestGuideLookupSubstringMatch(t *testing.T) {
	store := testGuideStore(t)
	got, err := store.Lookup("ingenieria_de_servidores", "temario")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !strings.Contains(got, "Tema 1") {
		t.Errorf("substring section match failed: %q", got)
	}
}

func TestGuideLookupUnknown(t *testing.T) {
	store := testGuideStore(t)

	got, err := store.Lookup("asignatura_inexistente", "")
	if err != nil || got != "" {
		t.Errorf("unknown subject: got %q, err %v", got, err)
	}

	got, err = store.Lookup("ingenieria_de_servidores", "bibliografía")
	if err != nil || got != "" {
		t.Errorf("unknown section: got %q, err %v", got, err)
	}
}

func TestGuideSaveOverwrites(t *testing.T) {
	store := testGuideStore(t)
	err := store.Save(&Guide{
		Subject:  "ingenieria_de_servidores",
		Sections: []GuideSection{{Title: "Evaluación", Content: "Nuevo criterio."}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Lookup("ingenieria_de_servidores", "evaluación")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "Nuevo criterio." {
		t.Errorf("overwrite failed: %q", got)
	}
}
