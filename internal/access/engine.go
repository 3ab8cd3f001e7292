// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package access

import (
	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Engine authorizes project actions against a compiled permission table.
//
// The table is immutable after construction; Engine is safe for concurrent
// use without synchronization.
type Engine struct {
	relations map[string][]compiledPermission
}

// compiledPermission holds a permission pattern and its compiled glob.
type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// NewEngine creates an Engine with the default permission table.
//
// Panics if the default table contains an invalid pattern (programming bug).
func NewEngine() *Engine {
	e, err := NewEngineWithRelations(DefaultRelations())
	if err != nil {
		panic("invalid permission pattern in DefaultRelations: " + err.Error())
	}
	return e
}

// NewEngineWithRelations creates an Engine with a custom permission table.
// Returns an error if any pattern fails to compile.
func NewEngineWithRelations(relations map[string][]string) (*Engine, error) {
	compiled := make(map[string][]compiledPermission, len(relations))
	for relation, perms := range relations {
		list := make([]compiledPermission, 0, len(perms))
		for _, p := range perms {
			g, err := glob.Compile(p, ':')
			if err != nil {
				return nil, oops.In("access").
					Code("INVALID_PERMISSION_PATTERN").
					With("relation", relation).
					With("pattern", p).
					Wrap(err)
			}
			list = append(list, compiledPermission{pattern: p, glob: g})
		}
		compiled[relation] = list
	}
	return &Engine{relations: compiled}, nil
}

// Authorize decides whether identityID may perform action on the project
// described by state. A zero identityID is an anonymous caller.
//
// Non-members who match nothing get EffectDefaultDeny. Members whose relation
// does not grant the action get EffectDeny.
func (e *Engine) Authorize(identityID ulid.ULID, state State, action Action) Decision {
	relation := state.RelationOf(identityID)
	requested := string(action) + ":" + visibility(state)

	for _, perm := range e.relations[relation] {
		if perm.glob.Match(requested) {
			return NewDecision(EffectAllow, "granted by "+perm.pattern, relation)
		}
	}

	if relation == RelationPublic {
		return NewDecision(EffectDefaultDeny, "not a member of the project", relation)
	}
	return NewDecision(EffectDeny, relation+" may not "+string(action), relation)
}

// Can is shorthand for Authorize(...).IsAllowed().
func (e *Engine) Can(identityID ulid.ULID, state State, action Action) bool {
	return e.Authorize(identityID, state, action).IsAllowed()
}

func visibility(state State) string {
	if state.IsPrivate {
		return "private"
	}
	return "public"
}
