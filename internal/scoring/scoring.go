// Package scoring talks to the benchmark scoring API: it lists questions,
// downloads their attachments and grades a batch of answers.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	readTimeout   = 15 * time.Second
	submitTimeout = 60 * time.Second

	maxAttachmentBytes = 100 << 20
)

var (
	ErrNoQuestions = errors.New("scoring: fetched questions list is empty")
	ErrNoFilename  = errors.New("scoring: response has no attachment filename")
)

// Question is one benchmark entry. FileName is empty when the question has
// no attachment.
type Question struct {
	TaskID   string `json:"task_id"`
	Question string `json:"question"`
	Level    any    `json:"Level,omitempty"`
	FileName string `json:"file_name"`
}

// HasFile reports whether an attachment must be downloaded.
func (q Question) HasFile() bool {
	return q.FileName != ""
}

// Answer is one graded entry of a submission.
type Answer struct {
	TaskID          string `json:"task_id"`
	SubmittedAnswer string `json:"submitted_answer"`
}

type Submission struct {
	Username  string   `json:"username"`
	AgentCode string   `json:"agent_code"`
	Answers   []Answer `json:"answers"`
}

type SubmitResult struct {
	Username       string  `json:"username"`
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	TotalAttempted int     `json:"total_attempted"`
	Message        string  `json:"message"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func (c *Client) FetchQuestions(ctx context.Context) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	resp, err := c.get(ctx, "/questions")
	if err != nil {
		return nil, fmt.Errorf("scoring: fetch questions: %w", err)
	}
	defer resp.Body.Close()

	var questions []Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		return nil, fmt.Errorf("scoring: decode questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

// DownloadFile saves the attachment of taskID under dir and returns its path.
// The name comes from the Content-Disposition header, falling back to fallbackName.
func (c *Client) DownloadFile(ctx context.Context, taskID, dir, fallbackName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	resp, err := c.get(ctx, "/files/"+url.PathEscape(taskID))
	if err != nil {
		return "", fmt.Errorf("scoring: download file %s: %w", taskID, err)
	}
	defer resp.Body.Close()

	name := attachmentName(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = filepath.Base(fallbackName)
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("scoring: download file %s: %w", taskID, ErrNoFilename)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("scoring: download file %s: %w", taskID, err)
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("scoring: download file %s: %w", taskID, err)
	}
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxAttachmentBytes)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("scoring: download file %s: %w", taskID, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("scoring: download file %s: %w", taskID, err)
	}
	return path, nil
}

func (c *Client) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("scoring: submit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scoring: submit: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring: submit: %w", err)
	}
	defer resp.Body.Close()

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("scoring: decode submit result: %w", err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(detail))}
	}
	return resp, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(params["filename"])
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
