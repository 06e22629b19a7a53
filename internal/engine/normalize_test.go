package engine

import (
	"testing"
)

func strp(s string) *string { return &s }

func TestNormalizeVideoArray(t *testing.T) {
	t.Run("two subjects merged", func(t *testing.T) {
		raw := `[
			{"name":"Anna","symptoms":["fatigue","muscle pain"],"medicalHistoryOfPatient":"asthma","location":"Berlin"},
			{"name":"Ben","symptoms":["muscle pain","cramps"],"medicalHistoryOfPatient":"none","familyMedicalHistory":"father affected","location":"Madrid"}
		]`
		got, err := Normalize("dQw4w9WgXcQ", raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 merged record, got %d", len(got))
		}
		r := got[0]
		if r.VideoType != TypePatientStory {
			t.Errorf("video_type = %q, want %q", r.VideoType, TypePatientStory)
		}
		if r.Name == nil || *r.Name != "Multiple Patients" {
			t.Errorf("name = %v, want Multiple Patients", r.Name)
		}
		wantSymptoms := []string{"fatigue", "muscle pain", "cramps"}
		if len(r.Symptoms) != len(wantSymptoms) {
			t.Fatalf("symptoms = %v, want %v", r.Symptoms, wantSymptoms)
		}
		for i, s := range wantSymptoms {
			if r.Symptoms[i] != s {
				t.Errorf("symptoms[%d] = %q, want %q", i, r.Symptoms[i], s)
			}
		}
		if r.MedicalHistory == nil || *r.MedicalHistory != "asthma; none" {
			t.Errorf("medical history = %v, want joined with semicolon", r.MedicalHistory)
		}
		if r.FamilyHistory == nil || *r.FamilyHistory != "father affected" {
			t.Errorf("family history = %v", r.FamilyHistory)
		}
		if r.Location == nil || *r.Location != "Berlin" {
			t.Errorf("location = %v, want first one", r.Location)
		}
	})

	t.Run("single subject keeps own name", func(t *testing.T) {
		got, err := Normalize("dQw4w9WgXcQ", `[{"name":"Anna","symptoms":["fatigue"]}]`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 record, got %d", len(got))
		}
		if got[0].Name == nil || *got[0].Name != "Anna" {
			t.Errorf("name = %v, want Anna", got[0].Name)
		}
	})

	t.Run("empty array yields nothing", func(t *testing.T) {
		got, err := Normalize("dQw4w9WgXcQ", `[]`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestNormalizeVideoObject(t *testing.T) {
	t.Run("informational default", func(t *testing.T) {
		got, err := Normalize("dQw4w9WgXcQ", `{"topicOfInformation":"gene therapy","detailsOfInformation":"overview of trials"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 record, got %d", len(got))
		}
		r := got[0]
		if r.VideoType != "Informational" {
			t.Errorf("video_type = %q, want Informational", r.VideoType)
		}
		if r.TopicOfInformation == nil || *r.TopicOfInformation != "gene therapy" {
			t.Errorf("topic = %v", r.TopicOfInformation)
		}
		if r.Name != nil {
			t.Errorf("name should stay null, got %v", *r.Name)
		}
	})

	t.Run("explicit video_type kept", func(t *testing.T) {
		got, err := Normalize("dQw4w9WgXcQ", `{"video_type":"news bulletin","headline":"FDA approval"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got[0].VideoType != TypeNewsBulletin {
			t.Errorf("video_type = %q, want %q", got[0].VideoType, TypeNewsBulletin)
		}
	})

	t.Run("empty object yields all-null record", func(t *testing.T) {
		got, err := Normalize("dQw4w9WgXcQ", `{}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 record, got %d", len(got))
		}
		r := got[0]
		if r.VideoType != "Informational" {
			t.Errorf("video_type = %q, want Informational", r.VideoType)
		}
		if r.Name != nil || r.Sex != nil || r.Headline != nil {
			t.Error("optional fields should be null for empty object")
		}
	})
}

func TestNormalizeWebSource(t *testing.T) {
	t.Run("bare object wrapped as array", func(t *testing.T) {
		got, err := Normalize("https://example.org/story", `{"name":"Carla","symptoms":["seizures"]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 record, got %d", len(got))
		}
		if got[0].VideoType != TypePatientStory {
			t.Errorf("video_type = %q, want %q", got[0].VideoType, TypePatientStory)
		}
		if got[0].Name == nil || *got[0].Name != "Carla" {
			t.Errorf("name = %v, want Carla", got[0].Name)
		}
	})

	t.Run("array not merged", func(t *testing.T) {
		got, err := Normalize("https://example.org/story", `[{"name":"A"},{"name":"B"}]`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
		if *got[0].Name != "A" || *got[1].Name != "B" {
			t.Errorf("names = %v, %v", got[0].Name, got[1].Name)
		}
	})
}

func TestNormalizeMalformed(t *testing.T) {
	if _, err := Normalize("dQw4w9WgXcQ", `not json at all`); err == nil {
		t.Error("expected parse error for non-JSON reply")
	}
	if _, err := Normalize("dQw4w9WgXcQ", `[{"name": "truncated`); err == nil {
		t.Error("expected parse error for truncated array")
	}
}

func TestAsString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *string
	}{
		{"string", "hello", strp("hello")},
		{"number", float64(42), strp("42")},
		{"fraction", 7.5, strp("7.5")},
		{"bool", true, strp("true")},
		{"nil", nil, nil},
		{"object", map[string]any{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := asString(tt.in)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("asString(%v) = %v, want %v", tt.in, got, tt.want)
			case *got != *tt.want:
				t.Errorf("asString(%v) = %q, want %q", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestUnionAppend(t *testing.T) {
	got := unionAppend([]string{"a", "b"}, []string{"b", "c", "a", "d"})
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
