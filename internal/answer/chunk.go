package answer

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

// snapshotDiffer turns cumulative snapshots into the pieces that are new in
// each one. The leading artifact is removed from the first non-empty
// snapshot, and leading whitespace is dropped until something is emitted.
type snapshotDiffer struct {
	prev    string
	started bool
	emitted bool
}

// next returns the text to emit for snapshot, or "" when there is nothing new.
// A snapshot that does not extend the previous one is emitted whole.
func (d *snapshotDiffer) next(snapshot string) string {
	var delta string
	switch {
	case !d.started:
		if strings.TrimSpace(snapshot) == "" {
			d.prev = snapshot
			return ""
		}
		d.started = true
		delta = snapshot[domain.ArtifactPrefixLen(snapshot):]
	case strings.HasPrefix(snapshot, d.prev):
		delta = snapshot[len(d.prev):]
	default:
		delta = snapshot
	}
	d.prev = snapshot

	if !d.emitted {
		delta = strings.TrimLeftFunc(delta, unicode.IsSpace)
		if delta == "" {
			return ""
		}
		d.emitted = true
	}
	return delta
}

// splitWords splits text into chunks of one word plus the whitespace that
// follows it. Leading whitespace stays with the first word, so joining the
// chunks reproduces text exactly.
func splitWords(text string) []string {
	var (
		chunks  []string
		start   int
		inSpace bool
		seen    bool
	)
	for i, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && seen {
			chunks = append(chunks, text[start:i])
			start = i
		}
		inSpace = false
		seen = true
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}

// sleepWithContext waits d on clock, returning false if ctx ends first.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
