// Package permission maps role names to the permission claims embedded in
// access tokens. The engine only embeds; evaluation is the consumer's job.
package permission

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownRole = errors.New("unknown role")

// Registry is an immutable role -> permission-set table, fixed at Build
// time. Lookups are safe for concurrent use.
type Registry struct {
	roles map[string][]string
}

// NewRegistry copies and normalizes the role table: permission lists are
// deduplicated and sorted so token claims are deterministic.
func NewRegistry(roles map[string][]string) (*Registry, error) {
	if len(roles) == 0 {
		return nil, errors.New("at least one role is required")
	}

	normalized := make(map[string][]string, len(roles))
	for role, perms := range roles {
		if role == "" {
			return nil, errors.New("empty role name")
		}

		seen := make(map[string]struct{}, len(perms))
		list := make([]string, 0, len(perms))
		for _, perm := range perms {
			if perm == "" {
				return nil, fmt.Errorf("role %q has an empty permission", role)
			}
			if _, dup := seen[perm]; dup {
				continue
			}
			seen[perm] = struct{}{}
			list = append(list, perm)
		}
		sort.Strings(list)
		normalized[role] = list
	}

	return &Registry{roles: normalized}, nil
}

// Known reports whether the role exists in the table.
func (r *Registry) Known(role string) bool {
	_, ok := r.roles[role]
	return ok
}

// PermissionsFor returns a copy of the role's permission list.
func (r *Registry) PermissionsFor(role string) ([]string, error) {
	perms, ok := r.roles[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	out := make([]string, len(perms))
	copy(out, perms)
	return out, nil
}

// Roles lists the known role names, sorted.
func (r *Registry) Roles() []string {
	names := make([]string, 0, len(r.roles))
	for role := range r.roles {
		names = append(names, role)
	}
	sort.Strings(names)
	return names
}
