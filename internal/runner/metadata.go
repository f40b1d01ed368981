package runner

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type metadataEntry struct {
	TaskID      string `json:"task_id"`
	FinalAnswer string `json:"Final answer"`
}

// loadMetadata reads the ground-truth answers of a metadata.jsonl file keyed by
// task id. A missing file yields an empty map.
func loadMetadata(path string) (map[string]string, error) {
	truth := make(map[string]string)
	if path == "" {
		return truth, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return truth, nil
	}
	if err != nil {
		return truth, fmt.Errorf("runner: open metadata: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var entry metadataEntry
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			return truth, fmt.Errorf("runner: metadata line %d: %w", line, err)
		}
		if entry.TaskID != "" {
			truth[entry.TaskID] = entry.FinalAnswer
		}
	}
	if err := scanner.Err(); err != nil {
		return truth, fmt.Errorf("runner: read metadata: %w", err)
	}
	return truth, nil
}
