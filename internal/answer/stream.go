package answer

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

const (
	modePassthrough = "passthrough"
	modeReplay      = "replay"
)

// StreamOption configures a StreamOrchestrator.
type StreamOption func(*StreamOrchestrator)

// WithWordDelay sets the pause between replayed words. Zero disables it.
func WithWordDelay(d time.Duration) StreamOption {
	return func(s *StreamOrchestrator) { s.wordDelay = d }
}

// WithClock sets the clock used for replay pacing.
func WithClock(c clockwork.Clock) StreamOption {
	return func(s *StreamOrchestrator) { s.clock = c }
}

// StreamOrchestrator adds incremental delivery and conversation sessions to
// an Orchestrator. When the preferred provider streams and is available,
// answers are forwarded as they are generated within the current session.
// Otherwise the complete answer is computed and replayed word by word.
type StreamOrchestrator struct {
	*Orchestrator

	streaming StreamingProvider
	clock     clockwork.Clock
	wordDelay time.Duration

	mu      sync.Mutex
	session Session
}

// NewStreamOrchestrator wraps o. Incremental delivery is used only when o's
// preferred provider implements StreamingProvider.
func NewStreamOrchestrator(o *Orchestrator, opts ...StreamOption) *StreamOrchestrator {
	s := &StreamOrchestrator{
		Orchestrator: o,
		clock:        clockwork.NewRealClock(),
	}
	if sp, ok := o.preferred.(StreamingProvider); ok {
		s.streaming = sp
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewConversation closes any open session and, when the preferred provider
// can stream, opens a fresh one. It is a no-op beyond closing when the
// fallback is serving.
func (s *StreamOrchestrator) NewConversation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeSessionLocked()
	if !s.canStream() {
		return nil
	}
	sess, err := s.streaming.NewSession(ctx)
	if err != nil {
		return domain.AsGenerationFailed(err)
	}
	s.metrics.SessionsOpened.Inc()
	s.session = sess
	return nil
}

// EndConversation closes the open session, if any.
func (s *StreamOrchestrator) EndConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeSessionLocked()
}

// HasConversation reports whether a session is open.
func (s *StreamOrchestrator) HasConversation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Chunk is one fragment of a streamed answer.
type Chunk struct {
	Text string

	// Preferred reports whether the preferred provider is producing the
	// answer. It is fixed for the whole stream.
	Preferred bool
}

// StreamAsk answers question as a sequence of text fragments whose
// concatenation is the answer. A failure is yielded once as the final
// element. Stopping iteration early, or cancelling ctx, stops the producer.
func (s *StreamOrchestrator) StreamAsk(ctx context.Context, question string, ac domain.AskContext) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for c, err := range s.StreamRespond(ctx, question, ac) {
			if err == nil && c.Text == "" {
				continue
			}
			if !yield(c.Text, err) {
				return
			}
		}
	}
}

// StreamRespond is StreamAsk with provider attribution: every element,
// including a failure, names the provider that served the call. A completed
// stream yields at least one element, so an empty answer arrives as a single
// chunk with empty Text.
func (s *StreamOrchestrator) StreamRespond(ctx context.Context, question string, ac domain.AskContext) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		if s.canStream() {
			s.streamSession(ctx, question, ac, yield)
			return
		}
		s.replay(ctx, question, ac, yield)
	}
}

func (s *StreamOrchestrator) canStream() bool {
	return s.streaming != nil && s.IsPreferredAvailable()
}

func (s *StreamOrchestrator) streamSession(ctx context.Context, question string, ac domain.AskContext, yield func(Chunk, error) bool) {
	fail := func(err error) { yield(Chunk{Preferred: true}, err) }

	sess, err := s.currentSession(ctx)
	if err != nil {
		s.metrics.Asks.WithLabelValues(providerPreferred, outcomeError).Inc()
		fail(domain.AsGenerationFailed(err))
		return
	}

	var (
		diff     snapshotDiffer
		emitted  bool
		finished bool
	)
	defer func() {
		if !finished {
			s.metrics.StreamsAbandoned.Inc()
			s.discardSession(sess)
		}
	}()

	for snapshot, err := range sess.Stream(ctx, question, ac) {
		if err != nil {
			s.metrics.Asks.WithLabelValues(providerPreferred, outcomeError).Inc()
			s.logger.Warn("preferred stream failed", "error", err, "region", regionCode(ac))
			finished = true
			fail(domain.AsGenerationFailed(err))
			return
		}
		if ctx.Err() != nil {
			fail(ctx.Err())
			return
		}
		delta := diff.next(snapshot)
		if delta == "" {
			continue
		}
		s.metrics.StreamChunks.WithLabelValues(modePassthrough).Inc()
		emitted = true
		if !yield(Chunk{Text: delta, Preferred: true}, nil) {
			return
		}
	}

	if ctx.Err() != nil {
		fail(ctx.Err())
		return
	}
	finished = true
	s.metrics.Asks.WithLabelValues(providerPreferred, outcomeSuccess).Inc()
	if !emitted {
		yield(Chunk{Preferred: true}, nil)
	}
}

// currentSession returns the open session, opening one if needed.
func (s *StreamOrchestrator) currentSession(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return s.session, nil
	}
	sess, err := s.streaming.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SessionsOpened.Inc()
	s.session = sess
	return sess, nil
}

// discardSession closes sess if it is still the current session. A stream
// abandoned midway leaves the provider's history incomplete, so the next
// question starts a fresh session.
func (s *StreamOrchestrator) discardSession(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == sess {
		s.closeSessionLocked()
	}
}

func (s *StreamOrchestrator) closeSessionLocked() {
	if s.session == nil {
		return
	}
	if err := s.session.Close(); err != nil {
		s.logger.Warn("close session", "error", err)
	}
	s.session = nil
}

func (s *StreamOrchestrator) replay(ctx context.Context, question string, ac domain.AskContext, yield func(Chunk, error) bool) {
	reply, err := s.Respond(ctx, question, ac)
	if err != nil {
		yield(Chunk{Preferred: reply.Preferred}, err)
		return
	}

	chunks := splitWords(reply.Text)
	if len(chunks) == 0 {
		yield(Chunk{Preferred: reply.Preferred}, nil)
		return
	}
	for i, chunk := range chunks {
		s.metrics.StreamChunks.WithLabelValues(modeReplay).Inc()
		if !yield(Chunk{Text: chunk, Preferred: reply.Preferred}, nil) {
			s.metrics.StreamsAbandoned.Inc()
			return
		}
		if i == len(chunks)-1 {
			break
		}
		if !sleepWithContext(ctx, s.clock, s.wordDelay) {
			s.metrics.StreamsAbandoned.Inc()
			yield(Chunk{Preferred: reply.Preferred}, ctx.Err())
			return
		}
	}
}
