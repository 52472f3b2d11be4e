// Package access models what a caller may do. Commands ask for a capability,
// never for a role name.
package access

import (
	"sort"
	"strings"

	"github.com/dailydraw/streak-bot/internal/domain/shared"
)

// Capability is a single permission.
type Capability string

const (
	// ManageScores allows set_xp, set_streak and set_safe.
	ManageScores Capability = "manage_scores"
	// ForceReset allows triggering the daily reset by hand.
	ForceReset Capability = "force_reset"
)

// AllCapabilities lists every capability an administrator holds.
var AllCapabilities = []Capability{ManageScores, ForceReset}

// Set is a set of granted capabilities.
type Set map[Capability]struct{}

// NewSet creates a set from capabilities.
func NewSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether c is granted.
func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Require returns shared.ErrAuthorizationDenied when c is not granted.
func (s Set) Require(c Capability) error {
	if !s.Has(c) {
		return shared.ErrAuthorizationDenied
	}
	return nil
}

// String lists the capabilities for logs.
func (s Set) String() string {
	names := make([]string, 0, len(s))
	for c := range s {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Policy grants capabilities to callers.
type Policy struct {
	adminRoles map[string]struct{}
}

// NewPolicy creates a policy where members of any of roleIDs are administrators.
func NewPolicy(roleIDs []string) *Policy {
	roles := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			roles[id] = struct{}{}
		}
	}
	return &Policy{adminRoles: roles}
}

// Resolve returns the capabilities of a member holding roleIDs.
// Guild administrators get every capability.
func (p *Policy) Resolve(roleIDs []string, isAdministrator bool) Set {
	if isAdministrator {
		return NewSet(AllCapabilities...)
	}
	for _, id := range roleIDs {
		if _, ok := p.adminRoles[id]; ok {
			return NewSet(AllCapabilities...)
		}
	}
	return NewSet()
}
