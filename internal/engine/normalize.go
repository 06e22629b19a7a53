package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnalysisResult is the fixed record shape every LLM reply is coerced into.
// video_type discriminates which payload fields are meaningful; the rest stay
// null. Field names follow the stored JSON contract.
type AnalysisResult struct {
	VideoType            string   `json:"video_type"`
	Name                 *string  `json:"name"`
	CurrentAge           *string  `json:"current_age"`
	OnsetAge             *string  `json:"onset_age"`
	Sex                  *string  `json:"sex"`
	Location             *string  `json:"location"`
	Symptoms             []string `json:"symptoms"`
	MedicalHistory       *string  `json:"medicalHistoryOfPatient"`
	FamilyHistory        *string  `json:"familyMedicalHistory"`
	DiagnosticChallenges []string `json:"challengesFacedDuringDiagnosis"`
	KeyOpinion           *string  `json:"key_opinion"`
	TopicOfInformation   *string  `json:"topicOfInformation"`
	DetailsOfInformation *string  `json:"detailsOfInformation"`
	Headline             *string  `json:"headline"`
	SummaryOfNews        *string  `json:"summaryOfNews"`
}

// Known video_type values. The LLM may also return free text, which is
// stored as-is.
const (
	TypePatientStory  = "patient story"
	TypeKOLInterview  = "kol interview"
	TypeInformational = "informational"
	TypeNewsBulletin  = "news bulletin"
)

// Normalize reshapes a cleaned LLM JSON reply into AnalysisResults.
//
// Web-scraped identifiers (anything starting with "http") always yield an
// array, wrapping a bare object as one element and defaulting video_type to
// "patient story". Video identifiers always yield a single record: an array
// reply is merged into one, an empty array yields nil.
//
// The two paths default video_type differently: "patient story" on the
// array path, "Informational" on the single-object path. Stored data
// depends on both defaults, so neither may change.
func Normalize(id, jsonText string) ([]AnalysisResult, error) {
	items, isArray, err := decodeReply(jsonText)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(id, "http") {
		results := make([]AnalysisResult, 0, len(items))
		for _, m := range items {
			results = append(results, shapeItem(m, TypePatientStory))
		}
		return results, nil
	}

	if isArray {
		if len(items) == 0 {
			return nil, nil
		}
		merged := mergePatients(items)
		return []AnalysisResult{merged}, nil
	}
	return []AnalysisResult{shapeItem(items[0], "Informational")}, nil
}

// decodeReply parses the reply as either a JSON object or array of objects.
func decodeReply(jsonText string) (items []map[string]any, isArray bool, err error) {
	trimmed := strings.TrimSpace(jsonText)
	if strings.HasPrefix(trimmed, "[") {
		var arr []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
			return nil, false, fmt.Errorf("parse JSON array: %w", err)
		}
		return arr, true, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, false, fmt.Errorf("parse JSON object: %w", err)
	}
	return []map[string]any{obj}, false, nil
}

// shapeItem coerces one parsed object into the fixed record shape, with
// missing optional fields becoming null and video_type falling back to the
// given default.
func shapeItem(m map[string]any, defaultType string) AnalysisResult {
	vt := defaultType
	if s := asString(m["video_type"]); s != nil && *s != "" {
		vt = *s
	}
	return AnalysisResult{
		VideoType:            vt,
		Name:                 asString(m["name"]),
		CurrentAge:           asString(m["current_age"]),
		OnsetAge:             asString(m["onset_age"]),
		Sex:                  asString(m["sex"]),
		Location:             asString(m["location"]),
		Symptoms:             asStringList(m["symptoms"]),
		MedicalHistory:       asString(m["medicalHistoryOfPatient"]),
		FamilyHistory:        asString(m["familyMedicalHistory"]),
		DiagnosticChallenges: asStringList(m["challengesFacedDuringDiagnosis"]),
		KeyOpinion:           asString(m["key_opinion"]),
		TopicOfInformation:   asString(m["topicOfInformation"]),
		DetailsOfInformation: asString(m["detailsOfInformation"]),
		Headline:             asString(m["headline"]),
		SummaryOfNews:        asString(m["summaryOfNews"]),
	}
}

// mergePatients collapses several extracted subjects from one video into a
// single record: symptom and challenge lists are unioned, history texts are
// concatenated with "; ", the name becomes "Multiple Patients" when more
// than one subject is present, and location takes the first one supplied.
func mergePatients(items []map[string]any) AnalysisResult {
	merged := AnalysisResult{
		VideoType:            TypePatientStory,
		Symptoms:             []string{},
		DiagnosticChallenges: []string{},
	}
	if len(items) > 1 {
		name := "Multiple Patients"
		merged.Name = &name
	} else {
		merged.Name = asString(items[0]["name"])
	}

	for _, m := range items {
		merged.Symptoms = unionAppend(merged.Symptoms, asStringList(m["symptoms"]))
		merged.DiagnosticChallenges = unionAppend(merged.DiagnosticChallenges, asStringList(m["challengesFacedDuringDiagnosis"]))
		merged.MedicalHistory = joinHistory(merged.MedicalHistory, asString(m["medicalHistoryOfPatient"]))
		merged.FamilyHistory = joinHistory(merged.FamilyHistory, asString(m["familyMedicalHistory"]))
		if merged.Location == nil {
			merged.Location = asString(m["location"])
		}
	}
	return merged
}

// unionAppend appends items not already present, preserving first-seen order.
func unionAppend(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}

// joinHistory concatenates non-empty history fragments with "; ".
func joinHistory(existing, next *string) *string {
	if next == nil || *next == "" {
		return existing
	}
	if existing == nil || *existing == "" {
		return next
	}
	joined := *existing + "; " + *next
	return &joined
}

// asString coerces a decoded JSON scalar to a string pointer, nil for
// absent, null, or non-scalar values.
func asString(v any) *string {
	switch t := v.(type) {
	case string:
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	case bool:
		s := strconv.FormatBool(t)
		return &s
	default:
		return nil
	}
}

// asStringList coerces a decoded JSON array to its scalar elements, nil for
// anything that is not an array.
func asStringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s := asString(e); s != nil {
			out = append(out, *s)
		}
	}
	return out
}
