// Package runner answers every benchmark question with the agent and submits
// the answers in one batch.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/m2tx/benchagent/internal/agent"
	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/scoring"
)

const (
	StatusFetchFailed  = "Failed to fetch questions."
	StatusNoAnswers    = "Agent did not produce any answers to submit."
	StatusSubmitFailed = "Submission Failed."
	StatusDryRun       = "Dry run: answers were not submitted."
)

var ErrMissingUsername = errors.New("runner: username is required")

// Answerer runs the agent on one task.
type Answerer interface {
	Run(ctx context.Context, task agent.Task) (*agent.Result, error)
}

// Scorer is the scoring API.
type Scorer interface {
	FetchQuestions(ctx context.Context) ([]scoring.Question, error)
	DownloadFile(ctx context.Context, taskID, dir, fallbackName string) (string, error)
	Submit(ctx context.Context, sub scoring.Submission) (*scoring.SubmitResult, error)
}

type Options struct {
	Username       string
	AgentCode      string
	AttachmentsDir string
	MetadataPath   string
	// Delay follows each question when Concurrency is 1 and separates
	// question starts otherwise.
	Delay       time.Duration
	Concurrency int
	DryRun      bool
}

// Row is one line of the results table.
type Row struct {
	TaskID          string      `json:"task_id"`
	Question        string      `json:"question"`
	SubmittedAnswer string      `json:"submitted_answer"`
	CorrectAnswer   string      `json:"correct_answer,omitempty"`
	State           agent.State `json:"state,omitempty"`
	Valid           bool        `json:"valid"`
	// Failed rows carry an AGENT ERROR placeholder and are not submitted.
	Failed bool   `json:"failed"`
	Note   string `json:"note,omitempty"`
}

// Report is the outcome of a batch run.
type Report struct {
	Status string                `json:"status"`
	Rows   []Row                 `json:"rows"`
	Score  *scoring.SubmitResult `json:"score,omitempty"`
}

// Answers returns the rows that go into the submission, in question order.
func (r *Report) Answers() []scoring.Answer {
	answers := make([]scoring.Answer, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.Failed {
			continue
		}
		answers = append(answers, scoring.Answer{TaskID: row.TaskID, SubmittedAnswer: row.SubmittedAnswer})
	}
	return answers
}

type Runner struct {
	agent  Answerer
	scorer Scorer
	opts   Options
}

func New(a Answerer, s Scorer, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Runner{agent: a, scorer: s, opts: opts}
}

type questionParam struct {
	idx      int
	ctx      context.Context
	question scoring.Question
	truth    map[string]string
	rows     []Row
	wg       *sync.WaitGroup
}

// Run fetches the questions, answers them and, unless DryRun is set, submits
// the answers. A failed fetch or submission is reported in Status, not as an
// error; errors are returned only for bad options or a failing pool.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if !r.opts.DryRun && strings.TrimSpace(r.opts.Username) == "" {
		return nil, ErrMissingUsername
	}

	questions, err := r.scorer.FetchQuestions(ctx)
	if err != nil {
		log.Errorf("runner: %v", err)
		return &Report{Status: StatusFetchFailed}, nil
	}
	log.Infof("runner: fetched %d questions", len(questions))

	truth, err := loadMetadata(r.opts.MetadataPath)
	if err != nil {
		log.Warnf("runner: %v", err)
	}

	rows, err := r.answerAll(ctx, questions, truth)
	if err != nil {
		return nil, err
	}

	report := &Report{Rows: rows}
	answers := report.Answers()
	if len(answers) == 0 {
		report.Status = StatusNoAnswers
		return report, nil
	}
	if r.opts.DryRun {
		report.Status = StatusDryRun
		return report, nil
	}

	log.Infof("runner: submitting %d answers for %s", len(answers), r.opts.Username)
	res, err := r.scorer.Submit(ctx, scoring.Submission{
		Username:  strings.TrimSpace(r.opts.Username),
		AgentCode: r.opts.AgentCode,
		Answers:   answers,
	})
	if err != nil {
		log.Errorf("runner: %v", err)
		report.Status = StatusSubmitFailed
		return report, nil
	}

	report.Score = res
	report.Status = fmt.Sprintf("Submission Successful!\nUser: %s\nOverall Score: %v%% (%d/%d correct)\nMessage: %s",
		res.Username, res.Score, res.CorrectCount, res.TotalAttempted, res.Message)
	return report, nil
}

func (r *Runner) answerAll(ctx context.Context, questions []scoring.Question, truth map[string]string) ([]Row, error) {
	valid := make([]scoring.Question, 0, len(questions))
	for _, q := range questions {
		if q.TaskID == "" || q.Question == "" {
			log.Warnf("runner: skipping malformed question %+v", q)
			continue
		}
		valid = append(valid, q)
	}

	if r.opts.Concurrency == 1 {
		return r.answerSequential(ctx, valid, truth), nil
	}
	return r.answerConcurrent(ctx, valid, truth)
}

// answerSequential pauses for Delay after each question completes.
func (r *Runner) answerSequential(ctx context.Context, questions []scoring.Question, truth map[string]string) []Row {
	rows := make([]Row, len(questions))
	for i, q := range questions {
		if i > 0 {
			r.pause(ctx)
		}
		rows[i] = r.answer(ctx, q, truth)
	}
	return rows
}

// answerConcurrent staggers question starts by Delay across the worker pool.
func (r *Runner) answerConcurrent(ctx context.Context, questions []scoring.Question, truth map[string]string) ([]Row, error) {
	rows := make([]Row, len(questions))
	pool, err := ants.NewPoolWithFunc(r.opts.Concurrency, func(args any) {
		p, ok := args.(*questionParam)
		if !ok {
			panic("question pool args type error")
		}
		defer p.wg.Done()
		p.rows[p.idx] = r.answer(p.ctx, p.question, p.truth)
	})
	if err != nil {
		return nil, fmt.Errorf("runner: create question pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, q := range questions {
		if i > 0 {
			r.pause(ctx)
		}

		wg.Add(1)
		param := &questionParam{idx: i, ctx: ctx, question: q, truth: truth, rows: rows, wg: &wg}
		if err := pool.Invoke(param); err != nil {
			wg.Done()
			rows[i] = failedRow(q, truth, err)
		}
	}
	wg.Wait()

	return rows, nil
}

func (r *Runner) pause(ctx context.Context) {
	if r.opts.Delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.opts.Delay):
	}
}

func (r *Runner) answer(ctx context.Context, q scoring.Question, truth map[string]string) Row {
	task := agent.Task{ID: q.TaskID, Question: q.Question, CorrectAnswer: truth[q.TaskID]}
	row := Row{TaskID: q.TaskID, Question: q.Question, CorrectAnswer: task.CorrectAnswer}

	if err := ctx.Err(); err != nil {
		return failedRow(q, truth, err)
	}

	if q.HasFile() {
		path, err := r.scorer.DownloadFile(ctx, q.TaskID, r.opts.AttachmentsDir, q.FileName)
		if err != nil {
			log.Warnf("runner: task %s: %v", q.TaskID, err)
			row.Note = "attachment unavailable"
		} else {
			task.FilePath = path
		}
	}

	log.Infof("runner: task %s: %s", q.TaskID, q.Question)
	res, err := r.agent.Run(ctx, task)
	if err != nil {
		log.Errorf("runner: task %s: %v", q.TaskID, err)
		return failedRow(q, truth, err)
	}

	row.SubmittedAnswer = res.Answer
	row.State = res.State
	row.Valid = res.Valid
	if !res.Valid {
		row.Note = joinNote(row.Note, "invalid answer: "+res.ValidationReason)
	}
	log.Infof("runner: task %s: answer %q (correct %q)", q.TaskID, res.Answer, task.CorrectAnswer)
	return row
}

func failedRow(q scoring.Question, truth map[string]string, err error) Row {
	return Row{
		TaskID:          q.TaskID,
		Question:        q.Question,
		SubmittedAnswer: agent.Placeholder(err),
		CorrectAnswer:   truth[q.TaskID],
		Failed:          true,
	}
}

func joinNote(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
