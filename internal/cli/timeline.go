package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storypage/internal/order"
)

// loadTimeline reads a YAML list of timeline entries.
func loadTimeline(path string) ([]order.TimelineEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read timeline file", err)
	}
	var entries []order.TimelineEntry
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&entries); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse timeline file", fmt.Errorf("%s: %w", path, err))
	}
	return entries, nil
}
