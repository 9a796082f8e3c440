package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/storm-guidance-service/internal/adapter/http"
	"github.com/couchcryptid/storm-guidance-service/internal/answer"
	"github.com/couchcryptid/storm-guidance-service/internal/catalog"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockAssistant struct {
	preferred     bool
	served        bool
	reply         string
	err           error
	chunks        []string
	streamErr     error
	conversations int
	ended         int
	lastContext   domain.AskContext
}

func (m *mockAssistant) IsPreferredAvailable() bool { return m.preferred }

func (m *mockAssistant) Exchange(_ context.Context, question string, ac domain.AskContext) (domain.Message, domain.Message, error) {
	m.lastContext = ac
	q := domain.NewQuestion(question, ac)
	if m.err != nil {
		return q, domain.NewAnswer(answer.FailureReply, m.preferred, ac), m.err
	}
	return q, domain.NewAnswer(m.reply, m.preferred, ac), nil
}

func (m *mockAssistant) StreamRespond(_ context.Context, _ string, ac domain.AskContext) iter.Seq2[answer.Chunk, error] {
	m.lastContext = ac
	return func(yield func(answer.Chunk, error) bool) {
		for _, c := range m.chunks {
			if !yield(answer.Chunk{Text: c, Preferred: m.served}, nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield(answer.Chunk{Preferred: m.served}, m.streamErr)
		}
	}
}

func (m *mockAssistant) NewConversation(_ context.Context) error {
	m.conversations++
	return m.err
}

func (m *mockAssistant) EndConversation() { m.ended++ }

type mockLocator struct {
	code string
	err  error
}

func (m *mockLocator) LocateRegion(_ context.Context, _, _ float64) (string, error) {
	return m.code, m.err
}
func (m *mockLocator) ResolvePlace(_ context.Context, _ string) (string, error) { return m.code, m.err }

type mockJournal struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (m *mockJournal) Record(messages ...domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, messages...)
}

type testEnv struct {
	srv       *httpadapter.Server
	assistant *mockAssistant
	journal   *mockJournal
}

func newTestEnv(t *testing.T, readyErr error, locator domain.RegionLocator) *testEnv {
	t.Helper()
	c, err := catalog.Embedded()
	require.NoError(t, err)

	env := &testEnv{
		assistant: &mockAssistant{reply: "Go to an interior room."},
		journal:   &mockJournal{},
	}
	env.srv = httpadapter.NewServer(":0", httpadapter.Deps{
		Regions:   c,
		Tips:      domain.NewTipsService(domain.NewRuleEngine(c.Rules()), c),
		Assistant: env.assistant,
		Locator:   locator,
		Journal:   env.journal,
		Ready:     &mockReadiness{err: readyErr},
		Metrics:   observability.NewMetricsForTesting(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	e.srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := newTestEnv(t, nil, nil).do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newTestEnv(t, nil, nil).do(http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := newTestEnv(t, fmt.Errorf("not ready yet"), nil).do(http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newTestEnv(t, nil, nil).do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- reference data ---

func TestRegions(t *testing.T) {
	rec := newTestEnv(t, nil, nil).do(http.MethodGet, "/v1/regions", "")

	require.Equal(t, http.StatusOK, rec.Code)
	regions := decode[[]map[string]any](t, rec)
	require.NotEmpty(t, regions)
	assert.Equal(t, "TX", regions[0]["code"])
	assert.Equal(t, "high", regions[0]["risk"])
}

func TestTips_ByRegionCode(t *testing.T) {
	rec := newTestEnv(t, nil, nil).do(http.MethodGet, "/v1/tips?region=tx&month=apr", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "TX", body["region"])
	assert.Equal(t, "Texas", body["name"])
	assert.Equal(t, "April", body["month"])
	assert.Equal(t, "very-high", body["risk"])
	assert.Contains(t, body["hazards"], "Tornadoes")
	assert.NotEmpty(t, body["tips"])
}

func TestTips_NoRegionIsEmpty(t *testing.T) {
	rec := newTestEnv(t, nil, nil).do(http.MethodGet, "/v1/tips?month=July", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"region":"","month":"July","hazards":[],"tips":[]}`, rec.Body.String())
}

func TestTips_Errors(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/v1/tips?region=ZZ", http.StatusNotFound},
		{"/v1/tips?region=TX&month=Smarch", http.StatusBadRequest},
		{"/v1/tips?lat=30&lon=-97", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestTips_ByCoordinates(t *testing.T) {
	env := newTestEnv(t, nil, &mockLocator{code: "OK"})

	rec := env.do(http.MethodGet, "/v1/tips?lat=36.15&lon=-95.99&month=May", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decode[map[string]any](t, rec)["region"])
}

func TestTips_LocatorFailures(t *testing.T) {
	tests := []struct {
		name    string
		locator *mockLocator
		target  string
		status  int
	}{
		{"bad coordinates", &mockLocator{code: "TX"}, "/v1/tips?lat=200&lon=0", http.StatusBadRequest},
		{"lookup error", &mockLocator{err: errors.New("timeout")}, "/v1/tips?place=Austin", http.StatusBadGateway},
		{"nothing found", &mockLocator{}, "/v1/tips?place=Atlantis", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestEnv(t, nil, tt.locator).do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

// --- ask ---

func TestAssistantStatus(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.assistant.preferred = true

	rec := env.do(http.MethodGet, "/v1/assistant", "")

	assert.JSONEq(t, `{"preferred_available":true}`, rec.Body.String())
}

func TestAsk_Success(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(http.MethodPost, "/v1/ask", `{"question":"tornado?","region":"TX","month":"April"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Go to an interior room.", body["answer"])
	assert.Equal(t, false, body["preferred"])
	assert.NotEmpty(t, body["asked_at"])

	require.NotNil(t, env.assistant.lastContext.Region)
	assert.Equal(t, "TX", env.assistant.lastContext.Region.Code)
	assert.Equal(t, "April", env.assistant.lastContext.Month)

	require.Len(t, env.journal.messages, 2)
	assert.True(t, env.journal.messages[0].FromUser)
	assert.Equal(t, "Go to an interior room.", env.journal.messages[1].Text)
}

func TestAsk_FailureReturns502WithPlaceholder(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.assistant.preferred = true
	env.assistant.err = domain.GenerationFailed("quota exceeded", nil)

	rec := env.do(http.MethodPost, "/v1/ask", `{"question":"tornado?"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, answer.FailureReply, body["answer"])
	assert.Equal(t, "generation failed: quota exceeded", body["error"])
	assert.Len(t, env.journal.messages, 2)
}

func TestAsk_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/ask", `not json`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/v1/ask", `{"question":"x","region":"ZZ"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/ask", `{"question":"x","month":"13"}`).Code)
	assert.Empty(t, env.journal.messages)
}

// --- streaming ---

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		cur    sseEvent
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			events = append(events, cur)
			cur = sseEvent{}
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func TestAskStream_EmitsChunksThenDone(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.assistant.chunks = []string{"Stay ", "low\n", "and covered."}

	rec := env.do(http.MethodPost, "/v1/ask/stream", `{"question":"tornado?","region":"TX"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 4)

	var text strings.Builder
	for _, ev := range events[:3] {
		assert.Empty(t, ev.name)
		var chunk string
		require.NoError(t, json.Unmarshal([]byte(ev.data), &chunk))
		text.WriteString(chunk)
	}
	assert.Equal(t, "Stay low\nand covered.", text.String())
	assert.Equal(t, "done", events[3].name)

	require.Len(t, env.journal.messages, 2)
	assert.Equal(t, "Stay low\nand covered.", env.journal.messages[1].Text)
}

func TestAskStream_ErrorEvent(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.assistant.chunks = []string{"Partial"}
	env.assistant.streamErr = domain.GenerationFailed("connection reset", nil)

	rec := env.do(http.MethodPost, "/v1/ask/stream", `{"question":"tornado?"}`)

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, "error", events[1].name)
	assert.Contains(t, events[1].data, "connection reset")

	require.Len(t, env.journal.messages, 2)
	assert.Equal(t, answer.FailureReply, env.journal.messages[1].Text)
}

func TestAskStream_DoneReportsServingProvider(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	// Availability changed after the stream picked its provider.
	env.assistant.preferred = true
	env.assistant.served = false
	env.assistant.chunks = []string{"Stay ", "inside."}

	rec := env.do(http.MethodPost, "/v1/ask/stream", `{"question":"heat?"}`)

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "done", events[2].name)
	assert.JSONEq(t, `{"preferred":false}`, events[2].data)

	require.Len(t, env.journal.messages, 2)
	assert.False(t, env.journal.messages[1].Preferred)
}

func TestAskStream_EmptyChunksAreNotSent(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.assistant.served = true
	env.assistant.chunks = []string{""}

	rec := env.do(http.MethodPost, "/v1/ask/stream", `{"question":"q"}`)

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "done", events[0].name)
	assert.JSONEq(t, `{"preferred":true}`, events[0].data)
}

func TestAskStream_BadRequestIsJSON(t *testing.T) {
	rec := newTestEnv(t, nil, nil).do(http.MethodPost, "/v1/ask/stream", `{"question":"x","region":"ZZ"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

// --- conversation ---

func TestConversationLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/v1/conversation", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/v1/conversation", "").Code)
	assert.Equal(t, 1, env.assistant.conversations)
	assert.Equal(t, 1, env.assistant.ended)

	env.assistant.err = domain.GenerationFailed("no model", nil)
	assert.Equal(t, http.StatusBadGateway, env.do(http.MethodPost, "/v1/conversation", "").Code)
}
