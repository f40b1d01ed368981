// Package httpapi exposes the agent over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/m2tx/benchagent/internal/agent"
	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/repository"
	"github.com/m2tx/benchagent/internal/runner"
)

// Answerer answers one task.
type Answerer interface {
	Run(ctx context.Context, task agent.Task) (*agent.Result, error)
	Tools() []string
}

// BatchRequest starts a full benchmark run.
type BatchRequest struct {
	Username  string `json:"username"`
	AgentCode string `json:"agent_code"`
	DryRun    bool   `json:"dry_run"`
}

// BatchFunc runs every question and submits the answers.
type BatchFunc func(ctx context.Context, req BatchRequest) (*runner.Report, error)

type Server struct {
	router      *mux.Router
	handler     http.Handler
	agent       Answerer
	transcripts repository.TranscriptRepository
	batch       BatchFunc
	static      fs.FS

	// one batch at a time
	batchMu sync.Mutex
}

type Option func(*Server)

// WithBatch enables POST /run.
func WithBatch(fn BatchFunc) Option {
	return func(s *Server) {
		s.batch = fn
	}
}

// WithStatic serves chat.html from fsys at "/".
func WithStatic(fsys fs.FS) Option {
	return func(s *Server) {
		s.static = fsys
	}
}

func New(a Answerer, transcripts repository.TranscriptRepository, opts ...Option) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		agent:       a,
		transcripts: transcripts,
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	s.registerRoutes()
	s.handler = c.Handler(s.router)
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/prompt", s.handlePrompt).Methods(http.MethodPost)
	s.router.HandleFunc("/transcripts/{task_id}", s.handleGetTranscript).Methods(http.MethodGet)
	s.router.HandleFunc("/transcripts/{task_id}", s.handleDeleteTranscript).Methods(http.MethodDelete)
	s.router.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	if s.static != nil {
		s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, s.static, "chat.html")
		}).Methods(http.MethodGet)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tools": s.agent.Tools()})
}

type promptRequest struct {
	TaskID        string `json:"task_id"`
	Question      string `json:"question"`
	FilePath      string `json:"file_path"`
	CorrectAnswer string `json:"correct_answer"`
}

type errorResponse struct {
	TaskID string `json:"task_id,omitempty"`
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error"`
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}
	if req.TaskID == "" {
		req.TaskID = uuid.NewString()
	}

	res, err := s.agent.Run(r.Context(), agent.Task{
		ID:            req.TaskID,
		Question:      req.Question,
		FilePath:      req.FilePath,
		CorrectAnswer: req.CorrectAnswer,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, agent.ErrEmptyQuestion):
			status = http.StatusBadRequest
		case errors.Is(err, agent.ErrModelCall):
			status = http.StatusBadGateway
		}
		log.Errorf("httpapi: prompt %s: %v", req.TaskID, err)
		writeJSON(w, status, errorResponse{TaskID: req.TaskID, Answer: agent.Placeholder(err), Error: err.Error()})
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	transcript, err := s.transcripts.Load(r.Context(), taskID)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{TaskID: taskID, Error: err.Error()})
		return
	}
	if transcript == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{TaskID: taskID, Error: "transcript not found"})
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	if err := s.transcripts.Delete(r.Context(), taskID); err != nil {
		writeJSON(w, statusFor(err), errorResponse{TaskID: taskID, Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.batch == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "batch runs are not enabled"})
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if !s.batchMu.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a batch run is already in progress"})
		return
	}
	defer s.batchMu.Unlock()

	report, err := s.batch(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, runner.ErrMissingUsername) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func statusFor(err error) int {
	if errors.Is(err, repository.ErrMissingTaskID) || errors.Is(err, repository.ErrInvalidTaskID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("httpapi: encode response: %v", err)
	}
}
