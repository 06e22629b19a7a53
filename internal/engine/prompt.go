package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// The extraction prompt lives in a YAML prompt library next to the binary,
// not in code, so analysts can tune it without a rebuild. The library maps a
// named entry to a template with {title}, {transcript} and {videoId}
// placeholders.

// promptLibraryEntry is one named template in the library file.
type promptLibraryEntry struct {
	Prompt string `yaml:"prompt"`
}

// diseaseSpaceKey is the library entry used for transcript extraction.
const diseaseSpaceKey = "disease_space"

var diseaseSpacePrompt string

// LoadPromptLibrary reads the prompt library and caches the extraction
// template. A missing file or missing entry is a startup-fatal error: no
// analysis can run without the template.
func LoadPromptLibrary(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read prompt library %s: %w", path, err)
	}

	var lib map[string]promptLibraryEntry
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return fmt.Errorf("parse prompt library %s: %w", path, err)
	}

	entry, ok := lib[diseaseSpaceKey]
	if !ok || strings.TrimSpace(entry.Prompt) == "" {
		return fmt.Errorf("prompt library %s: %s.prompt not found", path, diseaseSpaceKey)
	}

	diseaseSpacePrompt = entry.Prompt
	return nil
}

// SetPromptTemplate overrides the loaded template. Test hook.
func SetPromptTemplate(tmpl string) { diseaseSpacePrompt = tmpl }

// FillTemplate interpolates title, transcript and identifier into the
// extraction template. Each placeholder is replaced at its first occurrence
// only; a template that repeats a placeholder keeps later occurrences
// literal.
func FillTemplate(videoID, transcript, title string) (string, error) {
	if diseaseSpacePrompt == "" {
		return "", fmt.Errorf("prompt library not loaded")
	}
	s := strings.Replace(diseaseSpacePrompt, "{title}", title, 1)
	s = strings.Replace(s, "{transcript}", transcript, 1)
	s = strings.Replace(s, "{videoId}", videoID, 1)
	return s, nil
}
