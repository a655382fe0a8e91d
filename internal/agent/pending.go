package agent

import (
	"sync"

	"github.com/ruvnet/swimguard/internal/transport"
)

// pendingRegistry correlates inbound Ack/Nack/PingRequestResponse messages
// with the in-flight probe that is waiting on them. Keys are caller-chosen
// strings (see directKey/indirectKey/relayKey in probe.go) so a direct probe
// of a target and a relayed probe of the same target never collide.
type pendingRegistry struct {
	mu    sync.Mutex
	byKey map[string]chan transport.Message
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{byKey: make(map[string]chan transport.Message)}
}

func (r *pendingRegistry) register(key string) chan transport.Message {
	ch := make(chan transport.Message, 1)
	r.mu.Lock()
	r.byKey[key] = ch
	r.mu.Unlock()
	return ch
}

func (r *pendingRegistry) unregister(key string) {
	r.mu.Lock()
	delete(r.byKey, key)
	r.mu.Unlock()
}

// deliver routes msg to the channel registered under key, if any, and
// reports whether a waiter was found.
func (r *pendingRegistry) deliver(key string, msg transport.Message) bool {
	r.mu.Lock()
	ch, ok := r.byKey[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
	default:
	}
	return true
}
