// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevCollab Contributors

package access

// Permission groups define reusable sets of permissions.
// Relations compose these groups rather than inheriting.
//
// A permission matches "<action>:<visibility>" where visibility is "public"
// or "private".

var publicPowers = []string{
	"project:read:public",
}

var memberPowers = []string{
	"project:read:*",
}

var adminPowers = []string{
	"project:update:*",
	"collaborator:add:*",
	"collaborator:remove:*",
}

var ownerPowers = []string{
	"project:**",
	"collaborator:**",
}

// Relations of a subject to a project. Collaborator relations reuse the role
// names.
const (
	RelationOwner  = "owner"
	RelationPublic = "public"
)

// DefaultRelations returns the default permission table keyed by relation.
func DefaultRelations() map[string][]string {
	return map[string][]string{
		RelationPublic:          publicPowers,
		string(RoleViewer):      compose(publicPowers, memberPowers),
		string(RoleContributor): compose(publicPowers, memberPowers),
		string(RoleAdmin):       compose(publicPowers, memberPowers, adminPowers),
		RelationOwner:           compose(publicPowers, memberPowers, adminPowers, ownerPowers),
	}
}

// compose merges multiple permission slices into one.
func compose(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	result := make([]string, 0, total)
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}
