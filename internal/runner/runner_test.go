package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m2tx/benchagent/internal/agent"
	"github.com/m2tx/benchagent/internal/scoring"
)

type fakeAgent struct {
	mu      sync.Mutex
	tasks   []agent.Task
	results map[string]*agent.Result
	errs    map[string]error
}

func (f *fakeAgent) Run(_ context.Context, task agent.Task) (*agent.Result, error) {
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()

	if err := f.errs[task.ID]; err != nil {
		return nil, err
	}
	if res, ok := f.results[task.ID]; ok {
		return res, nil
	}
	return &agent.Result{TaskID: task.ID, State: agent.StateTerminatedSuccess, Answer: "answer-" + task.ID, Valid: true}, nil
}

type fakeScorer struct {
	questions []scoring.Question
	fetchErr  error
	fileErr   error
	submitErr error

	downloads []string
	submitted *scoring.Submission
}

func (f *fakeScorer) FetchQuestions(context.Context) ([]scoring.Question, error) {
	return f.questions, f.fetchErr
}

func (f *fakeScorer) DownloadFile(_ context.Context, taskID, dir, name string) (string, error) {
	f.downloads = append(f.downloads, taskID)
	if f.fileErr != nil {
		return "", f.fileErr
	}
	return filepath.Join(dir, name), nil
}

func (f *fakeScorer) Submit(_ context.Context, sub scoring.Submission) (*scoring.SubmitResult, error) {
	f.submitted = &sub
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &scoring.SubmitResult{Username: sub.Username, Score: 50, CorrectCount: 1, TotalAttempted: len(sub.Answers), Message: "done"}, nil
}

func TestRunSubmitsAnswersInQuestionOrder(t *testing.T) {
	metadata := filepath.Join(t.TempDir(), "metadata.jsonl")
	require.NoError(t, os.WriteFile(metadata, []byte(
		`{"task_id":"t1","Question":"q","Final answer":"42"}`+"\n\n"+
			`{"task_id":"t3","Final answer":"blue"}`+"\n"), 0o644))

	scorer := &fakeScorer{questions: []scoring.Question{
		{TaskID: "t1", Question: "first"},
		{TaskID: "", Question: "no id"},
		{TaskID: "t2", Question: "second", FileName: "sheet.xlsx"},
		{TaskID: "t3", Question: "third"},
		{TaskID: "t4", Question: ""},
	}}
	fa := &fakeAgent{
		results: map[string]*agent.Result{
			"t3": {TaskID: "t3", State: agent.StateTerminatedSuccess, Answer: "$5!", Valid: false, ValidationReason: "answer contains invalid elements"},
		},
		errs: map[string]error{"t2": errors.New("rate limited")},
	}

	report, err := New(fa, scorer, Options{
		Username:       " ada ",
		AgentCode:      "https://example.com/code",
		AttachmentsDir: "/tmp/att",
		MetadataPath:   metadata,
		Concurrency:    3,
	}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Rows, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{report.Rows[0].TaskID, report.Rows[1].TaskID, report.Rows[2].TaskID})

	assert.Equal(t, "answer-t1", report.Rows[0].SubmittedAnswer)
	assert.Equal(t, "42", report.Rows[0].CorrectAnswer)

	assert.True(t, report.Rows[1].Failed)
	assert.Equal(t, "AGENT ERROR: rate limited", report.Rows[1].SubmittedAnswer)

	assert.False(t, report.Rows[2].Valid)
	assert.Equal(t, "invalid answer: answer contains invalid elements", report.Rows[2].Note)

	assert.Equal(t, []string{"t2"}, scorer.downloads)
	for _, task := range fa.tasks {
		if task.ID == "t2" {
			assert.Equal(t, filepath.Join("/tmp/att", "sheet.xlsx"), task.FilePath)
		}
		if task.ID == "t3" {
			assert.Equal(t, "blue", task.CorrectAnswer)
		}
	}

	require.NotNil(t, scorer.submitted)
	assert.Equal(t, "ada", scorer.submitted.Username)
	assert.Equal(t, []scoring.Answer{
		{TaskID: "t1", SubmittedAnswer: "answer-t1"},
		{TaskID: "t3", SubmittedAnswer: "$5!"},
	}, scorer.submitted.Answers)

	assert.Equal(t, "Submission Successful!\nUser: ada\nOverall Score: 50% (1/2 correct)\nMessage: done", report.Status)
	assert.Equal(t, 2, report.Score.TotalAttempted)
}

type slowAgent struct {
	mu     sync.Mutex
	work   time.Duration
	starts []time.Time
	ends   []time.Time
}

func (s *slowAgent) Run(_ context.Context, task agent.Task) (*agent.Result, error) {
	s.mu.Lock()
	s.starts = append(s.starts, time.Now())
	s.mu.Unlock()

	time.Sleep(s.work)

	s.mu.Lock()
	s.ends = append(s.ends, time.Now())
	s.mu.Unlock()
	return &agent.Result{TaskID: task.ID, State: agent.StateTerminatedSuccess, Answer: "a", Valid: true}, nil
}

func TestRunPausesAfterEachQuestion(t *testing.T) {
	scorer := &fakeScorer{questions: []scoring.Question{
		{TaskID: "t1", Question: "q1"},
		{TaskID: "t2", Question: "q2"},
		{TaskID: "t3", Question: "q3"},
	}}
	sa := &slowAgent{work: 150 * time.Millisecond}
	delay := 100 * time.Millisecond

	report, err := New(sa, scorer, Options{DryRun: true, Delay: delay, Concurrency: 1}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	require.Len(t, sa.starts, 3)
	for i := 1; i < len(sa.starts); i++ {
		gap := sa.starts[i].Sub(sa.ends[i-1])
		assert.GreaterOrEqual(t, gap, delay, "gap before question %d", i+1)
	}
}

func TestRunContinuesWithoutAttachment(t *testing.T) {
	scorer := &fakeScorer{
		questions: []scoring.Question{{TaskID: "t1", Question: "q", FileName: "a.mp3"}},
		fileErr:   errors.New("404"),
	}
	fa := &fakeAgent{}

	report, err := New(fa, scorer, Options{DryRun: true}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fa.tasks, 1)
	assert.Empty(t, fa.tasks[0].FilePath)
	assert.Equal(t, "attachment unavailable", report.Rows[0].Note)
	assert.Equal(t, StatusDryRun, report.Status)
	assert.Nil(t, scorer.submitted)
}

func TestRunStatuses(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		report, err := New(&fakeAgent{}, &fakeScorer{fetchErr: scoring.ErrNoQuestions}, Options{Username: "ada"}).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusFetchFailed, report.Status)
	})

	t.Run("no answers", func(t *testing.T) {
		scorer := &fakeScorer{questions: []scoring.Question{{TaskID: "t1", Question: "q"}}}
		fa := &fakeAgent{errs: map[string]error{"t1": errors.New("boom")}}
		report, err := New(fa, scorer, Options{Username: "ada"}).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusNoAnswers, report.Status)
		assert.Nil(t, scorer.submitted)
	})

	t.Run("submit failure", func(t *testing.T) {
		scorer := &fakeScorer{questions: []scoring.Question{{TaskID: "t1", Question: "q"}}, submitErr: errors.New("timeout")}
		report, err := New(&fakeAgent{}, scorer, Options{Username: "ada"}).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusSubmitFailed, report.Status)
		assert.Len(t, report.Rows, 1)
	})

	t.Run("missing username", func(t *testing.T) {
		_, err := New(&fakeAgent{}, &fakeScorer{}, Options{}).Run(context.Background())
		assert.ErrorIs(t, err, ErrMissingUsername)
	})
}

func TestLoadMetadata(t *testing.T) {
	truth, err := loadMetadata(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, truth)

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte(`{"task_id":"a","Final answer":"1"}`+"\n{oops\n"), 0o644))
	truth, err = loadMetadata(bad)
	assert.ErrorContains(t, err, "metadata line 2")
	assert.Equal(t, "1", truth["a"])
}
