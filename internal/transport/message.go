// Package transport carries swim.Directive side effects (pings, ping-requests,
// acks, nacks, relayed probe results) across the wire. It knows nothing about protocol semantics
// — it only moves Message values between nodes, the way the teacher's
// internal/consensus/transport package moves ConsensusMessage values between
// consensus nodes.
package transport

import "encoding/json"

// MessageKind tags the variant of a wire Message.
type MessageKind string

const (
	MessagePing                MessageKind = "ping"
	MessagePingRequest         MessageKind = "ping_request"
	MessageAck                 MessageKind = "ack"
	MessageNack                MessageKind = "nack"
	MessagePingRequestResponse MessageKind = "ping_request_response"
)

// WireStatus is the JSON-safe projection of swim.Status: SuspectedBy is
// serialized as a slice since map keys can't carry struct values cleanly
// across encoding/json in a stable way, and wire payloads don't need map
// semantics.
type WireStatus struct {
	Kind        uint8    `json:"kind"`
	Incarnation uint64   `json:"incarnation"`
	SuspectedBy []string `json:"suspected_by,omitempty"`
}

// WireMember is the JSON-safe projection of swim.Member.
type WireMember struct {
	Addr           string     `json:"addr"`
	Gen            string     `json:"gen"`
	Status         WireStatus `json:"status"`
	ProtocolPeriod uint64     `json:"protocol_period"`
}

// Message is the envelope exchanged between agent shells. From/To identify
// nodes by address+generation; Gossip carries the gossip members relevant to
// Kind.
type Message struct {
	Kind          MessageKind  `json:"kind"`
	From          NodeAddr     `json:"from"`
	To            NodeAddr     `json:"to"`
	Via           NodeAddr     `json:"via,omitempty"`             // ping-request relay
	Origin        NodeAddr     `json:"origin,omitempty"`          // who originally asked for the ping-request
	Target        NodeAddr     `json:"target,omitempty"`          // ping-request: who to ping
	Incarnation   uint64       `json:"incarnation"`
	TimeoutMillis int64        `json:"timeout_millis,omitempty"`
	Gossip        []WireMember `json:"gossip,omitempty"`
	// ResultKind carries the underlying probe outcome (ack or nack; a relay
	// whose ping got no answer in time reports nack) when Kind is
	// MessagePingRequestResponse, since that envelope kind itself only
	// identifies the message shape, not the probe result it relays.
	ResultKind MessageKind `json:"result_kind,omitempty"`
}

// NodeAddr identifies a node on the wire.
type NodeAddr struct {
	Addr string `json:"addr"`
	Gen  string `json:"gen"`
}

// Encode serializes a Message to JSON, the wire format every transport
// implementation in this package shares.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a wire-format Message.
func Decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}
