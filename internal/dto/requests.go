// Package dto contains Data Transfer Objects for the admin API.
package dto

// JoinRequest asks the agent to add a peer to its member table as Alive, the
// way a static seed list or an operator-triggered join would.
type JoinRequest struct {
	Addr string `json:"addr" validate:"required,hostport"`
}

// ForceSuspectRequest asks the agent to mark a known member Suspect without
// waiting for a missed probe (operability hook, see swim.Engine.ForceSuspect).
type ForceSuspectRequest struct {
	Addr string `json:"addr" validate:"required,hostport"`
}

// ConfigUpdateRequest updates a single runtime-tunable Lifeguard
// parameter (spec §6 leaves these operator-configurable).
type ConfigUpdateRequest struct {
	Key   string `json:"key" validate:"required,oneof=max_local_health_multiplier max_independent_suspicions disable_unreachable_phase"`
	Value int    `json:"value"`
}
