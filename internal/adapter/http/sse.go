package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

// handleAskStream answers as server-sent events: one unnamed event per chunk
// carrying the chunk as a JSON string, then a "done" or "error" event.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	req, ac, err := s.decodeAsk(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams may outlive the server-wide write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	question := domain.NewQuestion(req.Question, ac)

	var (
		sb        strings.Builder
		preferred bool
	)
	for chunk, err := range s.deps.Assistant.StreamRespond(ctx, req.Question, ac) {
		preferred = chunk.Preferred
		if err != nil {
			s.logger.Warn("stream failed", "error", err)
			if ctx.Err() == nil {
				_ = writeEvent(w, "error", map[string]string{"error": err.Error()})
				_ = rc.Flush()
			}
			s.record(question, failureAnswer(preferred, ac))
			return
		}
		if chunk.Text == "" {
			continue
		}
		sb.WriteString(chunk.Text)
		if err := writeEvent(w, "", chunk.Text); err != nil {
			s.logger.Debug("stream client went away", "error", err)
			return
		}
		_ = rc.Flush()
	}
	if ctx.Err() != nil {
		return
	}

	_ = writeEvent(w, "done", map[string]bool{"preferred": preferred})
	_ = rc.Flush()
	s.record(question, domain.NewAnswer(sb.String(), preferred, ac))
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
