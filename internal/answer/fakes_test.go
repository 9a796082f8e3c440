package answer

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-guidance-service/internal/catalog"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubProvider is a Provider with a fixed reply and call counter.
type stubProvider struct {
	available atomic.Bool
	reply     string
	err       error
	calls     atomic.Int32
}

func newStubProvider(available bool, reply string, err error) *stubProvider {
	p := &stubProvider{reply: reply, err: err}
	p.available.Store(available)
	return p
}

func (p *stubProvider) IsAvailable() bool { return p.available.Load() }

func (p *stubProvider) Ask(_ context.Context, _ string, _ domain.AskContext) (string, error) {
	p.calls.Add(1)
	return p.reply, p.err
}

// stubStreamer is a StreamingProvider whose sessions replay fixed snapshots.
type stubStreamer struct {
	*stubProvider
	snapshots []string
	streamErr error
	openErr   error

	mu       sync.Mutex
	sessions []*stubSession
}

func newStubStreamer(snapshots ...string) *stubStreamer {
	return &stubStreamer{
		stubProvider: newStubProvider(true, "", nil),
		snapshots:    snapshots,
	}
}

func (p *stubStreamer) NewSession(_ context.Context) (Session, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &stubSession{owner: p}
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *stubStreamer) opened() []*stubSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*stubSession(nil), p.sessions...)
}

type stubSession struct {
	owner     *stubStreamer
	closed    atomic.Bool
	questions []string
}

func (s *stubSession) Stream(ctx context.Context, question string, _ domain.AskContext) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.closed.Load() {
			yield("", domain.ErrNoActiveSession)
			return
		}
		s.questions = append(s.questions, question)
		for _, snap := range s.owner.snapshots {
			if ctx.Err() != nil {
				return
			}
			if s.closed.Load() {
				yield("", domain.ErrNoActiveSession)
				return
			}
			if !yield(snap, nil) {
				return
			}
		}
		if s.owner.streamErr != nil {
			yield("", s.owner.streamErr)
		}
	}
}

func (s *stubSession) Close() error {
	s.closed.Store(true)
	return nil
}

// pumpSession produces snapshots from a goroutine until the consumer stops,
// the way a network-backed session reads its response body.
type pumpSession struct {
	produced atomic.Int32
}

func (s *pumpSession) Stream(ctx context.Context, _ string, _ domain.AskContext) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := make(chan string)
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer close(ch)
			acc := ""
			for {
				acc += "word "
				select {
				case ch <- acc:
					s.produced.Add(1)
				case <-ctx.Done():
					return
				}
			}
		}()
		defer func() {
			cancel()
			<-done
		}()

		for snap := range ch {
			if !yield(snap, nil) {
				return
			}
		}
	}
}

func (s *pumpSession) Close() error { return nil }

type pumpStreamer struct {
	*stubProvider
	session *pumpSession
}

func (p *pumpStreamer) NewSession(_ context.Context) (Session, error) { return p.session, nil }

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Embedded()
	require.NoError(t, err)
	return c
}

func newTips(c *catalog.Catalog) *domain.TipsService {
	return domain.NewTipsService(domain.NewRuleEngine(c.Rules()), c)
}

func newTestOrchestrator(preferred Provider, fallback Asker) *Orchestrator {
	return NewOrchestrator(preferred, fallback, discardLogger(), observability.NewMetricsForTesting())
}

func collect(t *testing.T, seq iter.Seq2[string, error]) ([]string, error) {
	t.Helper()
	var chunks []string
	for chunk, err := range seq {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
