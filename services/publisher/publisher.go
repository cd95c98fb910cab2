package publisher

import "context"

// Publisher hands scrape results off to downstream consumers
type Publisher interface {
	// Publish appends message under key to one of the result streams and
	// returns the message id
	Publish(ctx context.Context, key string, message []byte) (string, error)

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}
