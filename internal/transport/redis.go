package transport

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisPeer implements Peer over a single shared Redis pub/sub channel: every
// node publishes to and subscribes from the same channel, filtering out
// messages not addressed to it. This trades point-to-point efficiency for
// zero-config discovery, useful for multi-process demos.
type RedisPeer struct {
	selfAddr string
	client   *redis.Client
	channel  string
	sub      *redis.PubSub
	ch       chan Message
}

// NewRedisPeer creates a peer bound to the shared channel on the given Redis
// instance.
func NewRedisPeer(selfAddr, addr, password string, db int, channel string) *RedisPeer {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPeer{
		selfAddr: selfAddr,
		client:   client,
		channel:  channel,
		ch:       make(chan Message, 256),
	}
}

func (p *RedisPeer) Start(ctx context.Context) error {
	if _, err := p.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis transport: ping: %w", err)
	}
	p.sub = p.client.Subscribe(ctx, p.channel)
	go p.readLoop(ctx)
	return nil
}

func (p *RedisPeer) readLoop(ctx context.Context) {
	in := p.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case rm, ok := <-in:
			if !ok {
				return
			}
			msg, err := Decode([]byte(rm.Payload))
			if err != nil {
				continue
			}
			if msg.To.Addr != p.selfAddr {
				continue
			}
			select {
			case p.ch <- msg:
			default:
			}
		}
	}
}

func (p *RedisPeer) Stop() error {
	if p.sub != nil {
		p.sub.Close()
	}
	return p.client.Close()
}

func (p *RedisPeer) Receive() <-chan Message { return p.ch }

func (p *RedisPeer) Send(ctx context.Context, to string, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("encode swim message: %w", err)
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}
