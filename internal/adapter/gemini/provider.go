// Package gemini adapts the Gemini API to the preferred answer provider.
package gemini

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"github.com/couchcryptid/storm-guidance-service/internal/answer"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

var _ answer.StreamingProvider = (*Provider)(nil)

// Config holds Gemini connection settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Prompter renders the text sent to the model for a question.
type Prompter interface {
	Prompt(question string, ac domain.AskContext) string
}

// Provider answers questions with Gemini. It reports itself unavailable
// after the API rejects its credentials, so later calls go to the fallback.
type Provider struct {
	backend   backend
	prompts   Prompter
	timeout   time.Duration
	logger    *slog.Logger
	available atomic.Bool
}

// New creates a Provider backed by the Gemini API.
func New(ctx context.Context, cfg Config, prompts Prompter, logger *slog.Logger) (*Provider, error) {
	b, err := newGenaiBackend(ctx, cfg, answer.Instructions)
	if err != nil {
		return nil, err
	}
	return newProvider(b, prompts, cfg.Timeout, logger), nil
}

func newProvider(b backend, prompts Prompter, timeout time.Duration, logger *slog.Logger) *Provider {
	p := &Provider{
		backend: b,
		prompts: prompts,
		timeout: timeout,
		logger:  logger,
	}
	p.available.Store(true)
	return p
}

// IsAvailable reports whether the provider can currently serve requests.
func (p *Provider) IsAvailable() bool {
	return p.available.Load()
}

// Ask returns the complete answer for question.
func (p *Provider) Ask(ctx context.Context, question string, ac domain.AskContext) (string, error) {
	if !p.IsAvailable() {
		return "", domain.Unavailable()
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	text, err := p.backend.Generate(ctx, p.prompts.Prompt(question, ac))
	if err != nil {
		return "", p.fail(err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.GenerationFailed("empty response from model", nil)
	}
	return text, nil
}

// NewSession opens a multi-turn conversation.
func (p *Provider) NewSession(ctx context.Context) (answer.Session, error) {
	if !p.IsAvailable() {
		return nil, domain.Unavailable()
	}
	c, err := p.backend.NewChat(ctx)
	if err != nil {
		return nil, p.fail(err)
	}
	return newSession(p, c), nil
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// fail classifies err, disabling the provider on credential errors.
func (p *Provider) fail(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			if p.available.CompareAndSwap(true, false) {
				p.logger.Error("gemini rejected credentials, disabling preferred provider", "code", apiErr.Code, "status", apiErr.Status)
			}
		}
		return domain.GenerationFailed(apiErr.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.GenerationFailed("model request timed out", err)
	}
	return domain.GenerationFailed("model request failed", err)
}

// session accumulates streamed pieces into cumulative snapshots. Streams on
// one session run one at a time because the chat appends every turn to a
// shared history.
type session struct {
	provider *Provider
	chat     chat
	closed   atomic.Bool
	turn     chan struct{}
}

func newSession(p *Provider, c chat) *session {
	return &session{provider: p, chat: c, turn: make(chan struct{}, 1)}
}

func (s *session) Stream(ctx context.Context, question string, ac domain.AskContext) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.closed.Load() {
			yield("", domain.ErrNoActiveSession)
			return
		}

		select {
		case s.turn <- struct{}{}:
			defer func() { <-s.turn }()
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		}
		if s.closed.Load() {
			yield("", domain.ErrNoActiveSession)
			return
		}

		ctx, cancel := s.provider.withTimeout(ctx)
		defer cancel()

		var acc strings.Builder
		for piece, err := range s.chat.SendStream(ctx, s.provider.prompts.Prompt(question, ac)) {
			if s.closed.Load() {
				yield("", domain.ErrNoActiveSession)
				return
			}
			if err != nil {
				yield("", s.provider.fail(err))
				return
			}
			acc.WriteString(piece)
			if !yield(acc.String(), nil) {
				return
			}
		}
	}
}

func (s *session) Close() error {
	s.closed.Store(true)
	return nil
}
