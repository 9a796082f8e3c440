package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPreferredUnavailable is returned when the preferred capability is
	// asked to answer while reporting itself unavailable.
	ErrPreferredUnavailable = errors.New("preferred provider unavailable")

	// ErrNoActiveSession is returned when a conversation operation runs
	// without an open session.
	ErrNoActiveSession = errors.New("no active conversation session")
)

// ProviderErrorKind classifies a ProviderError.
type ProviderErrorKind int

const (
	KindUnavailable ProviderErrorKind = iota
	KindGenerationFailed
)

func (k ProviderErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindGenerationFailed:
		return "generation_failed"
	default:
		return fmt.Sprintf("ProviderErrorKind(%d)", int(k))
	}
}

// ProviderError is the failure surfaced by ask and streamAsk.
type ProviderError struct {
	Kind   ProviderErrorKind
	Detail string
	Err    error
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindUnavailable:
		return ErrPreferredUnavailable.Error()
	default:
		if e.Detail == "" && e.Err != nil {
			return "generation failed: " + e.Err.Error()
		}
		return "generation failed: " + e.Detail
	}
}

func (e *ProviderError) Unwrap() error {
	if e.Kind == KindUnavailable {
		return ErrPreferredUnavailable
	}
	return e.Err
}

// Unavailable returns the ProviderError for a preferred provider that was
// called while unavailable.
func Unavailable() *ProviderError {
	return &ProviderError{Kind: KindUnavailable}
}

// GenerationFailed wraps err as a generation failure with a user-facing detail.
func GenerationFailed(detail string, err error) *ProviderError {
	return &ProviderError{Kind: KindGenerationFailed, Detail: detail, Err: err}
}

// AsGenerationFailed returns err unchanged when it already carries a
// ProviderError or a sentinel of this package, and otherwise wraps it as a
// generation failure.
func AsGenerationFailed(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) || errors.Is(err, ErrNoActiveSession) {
		return err
	}
	return GenerationFailed(err.Error(), err)
}
