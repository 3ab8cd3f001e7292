// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package access

import "fmt"

// Effect represents the evaluated outcome of an access control decision.
type Effect int

// Effect constants define the possible outcomes of a decision.
const (
	EffectDefaultDeny Effect = iota // default_deny
	EffectAllow                     // allow
	EffectDeny                      // deny
)

var effectStrings = [...]string{
	"default_deny",
	"allow",
	"deny",
}

func (e Effect) String() string {
	if e >= 0 && int(e) < len(effectStrings) {
		return effectStrings[e]
	}
	return fmt.Sprintf("unknown(%d)", int(e))
}

// Decision is the result of authorizing an action.
// The allowed field is unexported to prevent invariant bypass.
type Decision struct {
	allowed  bool
	Effect   Effect
	Reason   string
	Relation string
}

// NewDecision creates a Decision with allowed set consistently from effect.
func NewDecision(effect Effect, reason, relation string) Decision {
	return Decision{
		allowed:  effect == EffectAllow,
		Effect:   effect,
		Reason:   reason,
		Relation: relation,
	}
}

// IsAllowed returns whether the decision grants access.
func (d Decision) IsAllowed() bool {
	return d.allowed
}

// Validate checks that allowed is consistent with Effect.
func (d Decision) Validate() error {
	if d.allowed != (d.Effect == EffectAllow) {
		return fmt.Errorf("decision invariant violated: allowed=%v but effect=%s", d.allowed, d.Effect)
	}
	return nil
}
