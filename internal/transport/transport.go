package transport

import "context"

// Peer is what internal/agent depends on to move Messages between swimguard
// processes. Every concrete transport (memory, websocket, redis, nats)
// implements this same small surface, mirroring how the teacher's
// consensus.Transport interface decouples protocol logic from wire choice.
type Peer interface {
	// Send delivers a message to a single node address.
	Send(ctx context.Context, to string, msg Message) error

	// Receive returns the channel the shell reads incoming messages from.
	Receive() <-chan Message

	// Start begins accepting connections / subscriptions.
	Start(ctx context.Context) error

	// Stop releases all resources.
	Stop() error
}

// ErrUnavailable is returned by Send when no route exists for a target yet,
// e.g. a websocket connection hasn't been established. Shells should treat
// this the same as a ping timeout.
type ErrUnavailable struct {
	Target string
}

func (e *ErrUnavailable) Error() string {
	return "transport: no route to " + e.Target
}
