package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/anatolykoptev/go_medscan/internal/engine"
)

// readJSONFile decodes a JSON array file into out. A missing file leaves out
// untouched.
func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// appendUniqueVideos merges videos into the JSON array at path, keeping the
// last occurrence per video id and preserving first-seen order.
func appendUniqueVideos(path string, videos []engine.VideoMetadata) error {
	var existing []engine.VideoMetadata
	if err := readJSONFile(path, &existing); err != nil {
		return err
	}

	index := make(map[string]int, len(existing))
	merged := make([]engine.VideoMetadata, 0, len(existing)+len(videos))
	for _, v := range append(existing, videos...) {
		if at, seen := index[v.ID]; seen {
			merged[at] = v
			continue
		}
		index[v.ID] = len(merged)
		merged = append(merged, v)
	}
	return writeJSONFile(path, merged)
}

// appendUniqueIDs merges ids into the JSON string-array at path.
func appendUniqueIDs(path string, ids []string) error {
	var existing []string
	if err := readJSONFile(path, &existing); err != nil {
		return err
	}

	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(ids))
	for _, id := range append(existing, ids...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, id)
	}
	return writeJSONFile(path, merged)
}
