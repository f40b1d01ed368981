package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m2tx/benchagent/internal/model"
)

var (
	ErrMissingTaskID = errors.New("repository: transcript has no task id")
	ErrInvalidTaskID = errors.New("repository: task id is not a valid file name")
)

// FileTranscriptRepository stores one pretty-printed <task_id>.json per task.
type FileTranscriptRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileTranscriptRepository creates dir if needed.
func NewFileTranscriptRepository(dir string) (*FileTranscriptRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("repository: create transcript dir %q: %w", dir, err)
	}
	return &FileTranscriptRepository{dir: dir}, nil
}

func (r *FileTranscriptRepository) path(taskID string) (string, error) {
	if taskID == "" {
		return "", ErrMissingTaskID
	}
	if taskID != filepath.Base(taskID) || strings.ContainsAny(taskID, `/\`) || taskID == "." || taskID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskID, taskID)
	}
	return filepath.Join(r.dir, taskID+".json"), nil
}

func (r *FileTranscriptRepository) Save(_ context.Context, transcript *model.Transcript) error {
	if transcript == nil {
		return ErrMissingTaskID
	}
	path, err := r.path(transcript.TaskID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("repository: encode transcript %q: %w", transcript.TaskID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, transcript.TaskID+".*.tmp")
	if err != nil {
		return fmt.Errorf("repository: write transcript %q: %w", transcript.TaskID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("repository: write transcript %q: %w", transcript.TaskID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repository: write transcript %q: %w", transcript.TaskID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("repository: write transcript %q: %w", transcript.TaskID, err)
	}

	return nil
}

func (r *FileTranscriptRepository) Load(_ context.Context, taskID string) (*model.Transcript, error) {
	path, err := r.path(taskID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: read transcript %q: %w", taskID, err)
	}

	var transcript model.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("repository: decode transcript %q: %w", taskID, err)
	}
	return &transcript, nil
}

func (r *FileTranscriptRepository) Delete(_ context.Context, taskID string) error {
	path, err := r.path(taskID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("repository: delete transcript %q: %w", taskID, err)
	}
	return nil
}
