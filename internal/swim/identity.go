package swim

import "github.com/google/uuid"

// NewNode mints a Node identity for addr with a fresh generation tag. The
// generation tag is what lets a process that crashes and restarts at the
// same address avoid being confused with its own prior incarnation history
// by peers that haven't yet heard about the restart (spec §3 "Node").
func NewNode(addr string) Node {
	return Node{Addr: addr, Gen: uuid.NewString()}
}
