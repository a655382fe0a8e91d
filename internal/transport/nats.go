package transport

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPeer implements Peer over a NATS subject, the same broadcast-and-filter
// shape as RedisPeer but using NATS's subscription model instead of
// pub/sub-by-string-match.
type NATSPeer struct {
	selfAddr string
	conn     *nats.Conn
	subject  string
	sub      *nats.Subscription
	ch       chan Message
}

// NewNATSPeer connects to url and binds to subject.
func NewNATSPeer(selfAddr, url, subject string) (*NATSPeer, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats transport: connect: %w", err)
	}
	return &NATSPeer{
		selfAddr: selfAddr,
		conn:     conn,
		subject:  subject,
		ch:       make(chan Message, 256),
	}, nil
}

func (p *NATSPeer) Start(ctx context.Context) error {
	sub, err := p.conn.Subscribe(p.subject, func(m *nats.Msg) {
		msg, err := Decode(m.Data)
		if err != nil {
			return
		}
		if msg.To.Addr != p.selfAddr {
			return
		}
		select {
		case p.ch <- msg:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("nats transport: subscribe: %w", err)
	}
	p.sub = sub
	return nil
}

func (p *NATSPeer) Stop() error {
	if p.sub != nil {
		p.sub.Unsubscribe()
	}
	p.conn.Close()
	return nil
}

func (p *NATSPeer) Receive() <-chan Message { return p.ch }

func (p *NATSPeer) Send(ctx context.Context, to string, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("encode swim message: %w", err)
	}
	return p.conn.Publish(p.subject, data)
}
