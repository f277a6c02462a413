package analytics

import (
	"time"

	"ceprud-chatbot/models"
)

// LearningEvents derives pedagogical events from one classified
// interaction. Confidence reflects how well the answer was grounded:
// sourced answers score higher than unsourced ones.
func LearningEvents(sessionID, subject, queryType, complexity string, sourceCount int, now time.Time) []models.LearningEventLog {
	var events []models.LearningEventLog

	if queryType == "question" && complexity != "simple" {
		confidence := "low"
		if sourceCount > 0 {
			confidence = "medium"
		}
		events = append(events, models.LearningEventLog{
			SessionID:       sessionID,
			EventType:       "complex_question_asked",
			Topic:           subject,
			ConfidenceLevel: confidence,
			Timestamp:       now,
		})
	}

	if queryType == "definition" {
		confidence := "medium"
		if sourceCount > 2 {
			confidence = "high"
		}
		events = append(events, models.LearningEventLog{
			SessionID:       sessionID,
			EventType:       "concept_inquiry",
			Topic:           subject,
			ConfidenceLevel: confidence,
			Timestamp:       now,
		})
	}

	return events
}
