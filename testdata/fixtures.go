// Package testdata holds recorded detection streams used by tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/signassess/internal/summary"
)

//go:embed streams/*.json
var streamsFS embed.FS

// LoadStream loads a recorded per-frame detection stream by name, without
// the .json extension.
func LoadStream(name string) ([]summary.FrameDetection, error) {
	data, err := StreamJSON(name)
	if err != nil {
		return nil, err
	}

	var frames []summary.FrameDetection
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("decode stream %s: %w", name, err)
	}
	return frames, nil
}

// StreamJSON returns the raw JSON of a recorded stream.
func StreamJSON(name string) ([]byte, error) {
	data, err := streamsFS.ReadFile(path.Join("streams", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("load stream %s: %w", name, err)
	}
	return data, nil
}

// Streams lists the names of all recorded streams.
func Streams() ([]string, error) {
	entries, err := streamsFS.ReadDir("streams")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}
