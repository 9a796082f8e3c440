package answer

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

const (
	providerPreferred = "preferred"
	providerFallback  = "fallback"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

// FailureReply is recorded as the answer when the preferred provider fails,
// so a conversation never has a question without a reply.
const FailureReply = "Sorry, I couldn't generate an answer right now. Please try again, or browse the hazards list for preparedness steps."

// Reply is a complete answer together with the provider that produced it.
type Reply struct {
	Text      string
	Preferred bool
}

// Orchestrator sends each question to the preferred provider when it reports
// itself available and to the fallback otherwise. Exactly one provider is
// consulted per call; a preferred failure is returned, not retried.
type Orchestrator struct {
	preferred Provider
	fallback  Asker
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewOrchestrator creates an Orchestrator. preferred may be nil when no
// preferred capability is configured.
func NewOrchestrator(preferred Provider, fallback Asker, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		preferred: preferred,
		fallback:  fallback,
		logger:    logger,
		metrics:   metrics,
	}
}

// IsPreferredAvailable reports whether the preferred provider would serve
// the next call.
func (o *Orchestrator) IsPreferredAvailable() bool {
	ok := o.preferred != nil && o.preferred.IsAvailable()
	if ok {
		o.metrics.PreferredAvailable.Set(1)
	} else {
		o.metrics.PreferredAvailable.Set(0)
	}
	return ok
}

// Ask returns the answer text for question.
func (o *Orchestrator) Ask(ctx context.Context, question string, ac domain.AskContext) (string, error) {
	r, err := o.Respond(ctx, question, ac)
	return r.Text, err
}

// Respond dispatches question and reports which provider answered. Preferred
// answers are passed through domain.Clean; fallback answers are returned as
// produced. Preferred failures are returned as *domain.ProviderError.
func (o *Orchestrator) Respond(ctx context.Context, question string, ac domain.AskContext) (Reply, error) {
	start := time.Now()

	if o.IsPreferredAvailable() {
		text, err := o.preferred.Ask(ctx, question, ac)
		o.metrics.AskDuration.WithLabelValues(providerPreferred).Observe(time.Since(start).Seconds())
		if err != nil {
			o.metrics.Asks.WithLabelValues(providerPreferred, outcomeError).Inc()
			o.logger.Warn("preferred provider failed", "error", err, "region", regionCode(ac))
			return Reply{Preferred: true}, domain.AsGenerationFailed(err)
		}
		o.metrics.Asks.WithLabelValues(providerPreferred, outcomeSuccess).Inc()
		o.logger.Debug("answered by preferred provider", "region", regionCode(ac), "month", ac.Month)
		return Reply{Text: domain.Clean(text), Preferred: true}, nil
	}

	text, err := o.fallback.Ask(ctx, question, ac)
	o.metrics.AskDuration.WithLabelValues(providerFallback).Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.Asks.WithLabelValues(providerFallback, outcomeError).Inc()
		o.logger.Warn("fallback provider failed", "error", err)
		return Reply{}, domain.AsGenerationFailed(err)
	}
	o.metrics.Asks.WithLabelValues(providerFallback, outcomeSuccess).Inc()
	o.logger.Debug("answered by fallback provider", "region", regionCode(ac), "month", ac.Month)
	return Reply{Text: text}, nil
}

// Exchange answers question and returns the question and answer as
// conversation messages. When answering fails the answer message carries
// FailureReply and the error is returned alongside both messages.
func (o *Orchestrator) Exchange(ctx context.Context, question string, ac domain.AskContext) (q, a domain.Message, err error) {
	q = domain.NewQuestion(question, ac)
	r, err := o.Respond(ctx, question, ac)
	if err != nil {
		return q, domain.NewAnswer(FailureReply, r.Preferred, ac), err
	}
	return q, domain.NewAnswer(r.Text, r.Preferred, ac), nil
}

func regionCode(ac domain.AskContext) string {
	if ac.Region == nil {
		return ""
	}
	return ac.Region.Code
}
