// Package answer routes questions to the preferred generation capability when
// it is available and to the rule-based provider otherwise, and delivers the
// result either whole or as a stream of text fragments.
package answer

import (
	"context"
	"iter"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

// Asker produces a complete answer for a question.
type Asker interface {
	Ask(ctx context.Context, question string, ac domain.AskContext) (string, error)
}

// Provider is an answer source whose availability can change at runtime.
type Provider interface {
	Asker
	IsAvailable() bool
}

// StreamingProvider is a Provider that can hold a multi-turn conversation and
// deliver its answers incrementally.
type StreamingProvider interface {
	Provider
	NewSession(ctx context.Context) (Session, error)
}

// Session is one open conversation with a StreamingProvider.
//
// Stream yields cumulative snapshots: every value is the whole answer
// generated so far, not the newly generated piece. A closed session yields
// domain.ErrNoActiveSession.
type Session interface {
	Stream(ctx context.Context, question string, ac domain.AskContext) iter.Seq2[string, error]
	Close() error
}

// Assistant is the surface shared by the orchestrator and the rule-based
// provider, so callers can hold either.
type Assistant interface {
	Asker
	IsPreferredAvailable() bool
}
