package instance

import "context"

// Source fetches the current set of instances it contributes. A poll
// cycle calls Get on every configured source in sequence.
type Source interface {
	// Get returns the instances this source currently holds.
	Get(ctx context.Context) ([]Instance, error)
}

// SourceError wraps a single source's failure. The poller recovers from it
// locally: the current poll cycle aborts for that source only and the
// store retains its last-good generation.
type SourceError struct {
	SourceType string
	Scope      string
	Cause      error
}

func (e *SourceError) Error() string {
	return "instance: source " + e.SourceType + " (scope " + e.Scope + "): " + e.Cause.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}
