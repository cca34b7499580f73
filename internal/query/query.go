// Package query turns a free-text question plus the current process list into
// a prompt, sends it to the inference backend and records the reply.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Dicklesworthstone/procpulse/internal/model"
	"github.com/Dicklesworthstone/procpulse/internal/notice"
)

var (
	// ErrEmptyQuery is returned for blank input. Nothing is sent.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrBusy is returned while another submission is outstanding.
	ErrBusy = errors.New("a query is already in flight")
)

// Backend is the inference service. llm.Client implements it.
type Backend interface {
	Available(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatAppender receives successful replies. state.Store implements it.
type ChatAppender interface {
	AppendChat(reply string)
}

// Submitter runs one query at a time.
type Submitter struct {
	backend Backend
	chat    ChatAppender
	notices notice.Poster
	logger  *slog.Logger
	busy    atomic.Bool
}

// NewSubmitter wires a backend to a chat history. notices and logger may be nil.
func NewSubmitter(b Backend, chat ChatAppender, notices notice.Poster, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Submitter{backend: b, chat: chat, notices: notices, logger: logger}
}

// Busy reports whether a submission is in flight.
func (s *Submitter) Busy() bool { return s.busy.Load() }

// Probe checks the inference service and posts a warning when it is
// unreachable. Submissions stay allowed either way.
func (s *Submitter) Probe(ctx context.Context) bool {
	if err := s.backend.Available(ctx); err != nil {
		s.logger.Warn("inference service unavailable", "error", err)
		s.post(notice.Warning, "Inference service is not reachable. Start it locally to ask questions.")
		return false
	}
	return true
}

// Submit asks text about processes. On success the reply is appended to the
// chat history and returned.
func (s *Submitter) Submit(ctx context.Context, processes []model.Process, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.post(notice.Warning, "Please enter a question first.")
		return "", ErrEmptyQuery
	}
	if !s.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer s.busy.Store(false)

	prompt := BuildPrompt(processes, text)
	s.logger.Info("submitting query", "processes", len(processes), "query_len", len(text))

	reply, err := s.backend.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		s.post(notice.Error, fmt.Sprintf("Query failed: %v", err))
		return "", err
	}

	s.chat.AppendChat(reply)
	return reply, nil
}

func (s *Submitter) post(level notice.Level, text string) {
	if s.notices != nil {
		s.notices.Post(level, text)
	}
}

// BuildContext renders one line per process: pid, name, status, cpu, memory.
func BuildContext(processes []model.Process) string {
	var b strings.Builder
	for _, p := range processes {
		fmt.Fprintf(&b, "PID: %d, Name: %s, Status: %s, CPU: %.1f%%, Memory: %.1f KB\n",
			p.PID, p.Name, p.Status, p.CPU, p.Memory)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt joins the process context and the question with a newline.
func BuildPrompt(processes []model.Process, query string) string {
	return BuildContext(processes) + "\n" + query
}
