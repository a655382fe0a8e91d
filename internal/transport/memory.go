package transport

import (
	"context"
	"sync"
)

// memoryHub wires together every MemoryPeer created against it, so a single
// process can simulate a cluster (spec §9's determinism requirements lean on
// exactly this: no real sockets, no real clock).
type memoryHub struct {
	mu    sync.RWMutex
	peers map[string]*MemoryPeer
}

// NewMemoryHub creates a hub that in-process MemoryPeer transports register
// against, analogous to the teacher's WebSocketTransport dialing every other
// node — except here delivery is a direct channel send, no network involved.
func NewMemoryHub() *memoryHub {
	return &memoryHub{peers: make(map[string]*MemoryPeer)}
}

// MemoryPeer is the default, zero-configuration transport: useful for tests
// and single-process demos (cmd/swimguard simulate).
type MemoryPeer struct {
	addr string
	hub  *memoryHub
	ch   chan Message
}

// NewMemoryPeer registers a new peer under addr on hub.
func NewMemoryPeer(hub *memoryHub, addr string) *MemoryPeer {
	p := &MemoryPeer{addr: addr, hub: hub, ch: make(chan Message, 256)}
	hub.mu.Lock()
	hub.peers[addr] = p
	hub.mu.Unlock()
	return p
}

func (p *MemoryPeer) Start(ctx context.Context) error { return nil }

func (p *MemoryPeer) Stop() error {
	p.hub.mu.Lock()
	delete(p.hub.peers, p.addr)
	p.hub.mu.Unlock()
	return nil
}

func (p *MemoryPeer) Receive() <-chan Message { return p.ch }

func (p *MemoryPeer) Send(ctx context.Context, to string, msg Message) error {
	p.hub.mu.RLock()
	target, ok := p.hub.peers[to]
	p.hub.mu.RUnlock()
	if !ok {
		return &ErrUnavailable{Target: to}
	}
	select {
	case target.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return &ErrUnavailable{Target: to} // full buffer, same as unreachable
	}
}
