package repository

import (
	"context"

	"github.com/m2tx/benchagent/internal/model"
)

// TranscriptRepository defines persistence operations for per-task transcripts.
type TranscriptRepository interface {
	// Save persists the full transcript of a task.
	// Replaces any previously stored transcript for that task id.
	Save(ctx context.Context, transcript *model.Transcript) error

	// Load retrieves the stored transcript of a task.
	// Returns nil, nil if the task has no transcript.
	Load(ctx context.Context, taskID string) (*model.Transcript, error)

	// Delete removes the stored transcript of a task.
	// Is a no-op if the task has no transcript.
	Delete(ctx context.Context, taskID string) error
}
