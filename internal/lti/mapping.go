package lti

import "strings"

// courseLabelMap translates the course labels Moodle sends to the
// subject identifiers the knowledge base is indexed under.
var courseLabelMap = map[string]string{
	"IS":   "ingenieria_de_servidores",
	"MAC":  "modelos_avanzados_computacion",
	"META": "metaheuristicas",
	"IE1":  "inferencia_estadistica_1",
	"EST":  "estadistica",
}

// SubjectFromLabel maps a platform course label to a subject
// identifier. Unknown labels are normalized (lowercased, spaces to
// underscores) so new courses keep working without a code change.
func SubjectFromLabel(label string) string {
	label = strings.TrimSpace(label)
	if subject, ok := courseLabelMap[strings.ToUpper(label)]; ok {
		return subject
	}
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

// SyntheticEmail builds a stable pseudo-address for platform users,
// who never expose a real email through the launch.
func SyntheticEmail(ltiUserID string) string {
	return "lti_" + ltiUserID + "@moodle.local"
}
