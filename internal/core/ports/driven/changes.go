package driven

import "context"

// ChangeSource reports changes to the knowledge directory.
type ChangeSource interface {
	// Changes streams batches of changed paths until ctx is cancelled.
	// Bursts of events are coalesced into one batch.
	Changes(ctx context.Context) (<-chan []string, error)

	// Close stops watching.
	Close() error
}
