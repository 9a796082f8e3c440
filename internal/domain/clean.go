package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// noiseFragmentLen is the longest fragment, in runes and excluding terminal
// punctuation, that Clean treats as noise rather than a sentence.
const noiseFragmentLen = 10

// artifactRe matches the "null" token some generators emit before the answer.
var artifactRe = regexp.MustCompile(`(?i)^null(?:\s+|$)`)

// ArtifactPrefixLen returns the number of bytes at the start of s taken up by
// leading whitespace and "null" artifact tokens. It is 0 when s does not start
// with the artifact.
func ArtifactPrefixLen(s string) int {
	n := 0
	for {
		rest := s[n:]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		loc := artifactRe.FindStringIndex(trimmed)
		if loc == nil {
			if n == 0 {
				return 0
			}
			return n + len(rest) - len(trimmed)
		}
		n += len(rest) - len(trimmed) + loc[1]
	}
}

// StripArtifact trims s and removes any leading "null" artifact tokens.
func StripArtifact(s string) string {
	return strings.TrimSpace(s[ArtifactPrefixLen(s):])
}

// Clean normalizes generated text. It strips the leading artifact, splits
// the text into sentence fragments on . ! ? and newlines, drops fragments of
// ten characters or fewer, removes repeated sentences (compared lowercased
// with whitespace collapsed) keeping the first, and rejoins the survivors so
// the result ends with terminal punctuation.
//
// Fragments keep their own terminal punctuation; fragments split on a newline
// are given a period. When every fragment is noise-length the fragments are
// still deduplicated, and if nothing repeats the stripped text is returned
// unchanged. Dropping fragments can expose an artifact at the new head, so
// cleaning repeats until the result no longer starts with one. Clean is
// idempotent.
func Clean(text string) string {
	out := cleanOnce(text)
	for ArtifactPrefixLen(out) > 0 {
		out = cleanOnce(out)
	}
	return out
}

func cleanOnce(text string) string {
	stripped := StripArtifact(text)
	fragments := splitSentences(stripped)

	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if utf8.RuneCountInString(strings.TrimRight(f, ".!?")) > noiseFragmentLen {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		deduped := dedupeFragments(fragments)
		if len(deduped) == len(fragments) {
			return stripped
		}
		kept = deduped
	} else {
		kept = dedupeFragments(kept)
	}

	for i, f := range kept {
		if !endsWithTerminator(f) {
			kept[i] = f + "."
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// splitSentences breaks text after every run of terminal punctuation and at
// newlines. Fragments are trimmed; fragments with no content are dropped.
func splitSentences(text string) []string {
	var (
		out []string
		b   strings.Builder
	)
	flush := func() {
		f := strings.TrimSpace(b.String())
		b.Reset()
		if strings.TrimSpace(strings.Trim(f, ".!?")) != "" {
			out = append(out, f)
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\n':
			flush()
		case isTerminator(r):
			b.WriteRune(r)
			for i+1 < len(runes) && isTerminator(runes[i+1]) {
				i++
				b.WriteRune(runes[i])
			}
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

func dedupeFragments(fragments []string) []string {
	seen := make(map[string]struct{}, len(fragments))
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		key := normalizeFragment(f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

func normalizeFragment(f string) string {
	f = strings.TrimRight(f, ".!?")
	return strings.Join(strings.Fields(strings.ToLower(f)), " ")
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func endsWithTerminator(s string) bool {
	return s != "" && isTerminator(rune(s[len(s)-1]))
}
