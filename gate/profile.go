package gate

import (
	"context"
	"maps"
	"slices"
	"strings"
)

// Profile is a named set of permissions, such as a workspace role.
type Profile interface {
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver resolves a subject to its profile. A nil profile with a
// nil error means the subject has no profile.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// StaticProfile is an immutable in-memory profile. Exact grants are a set
// lookup; only wildcard grants are scanned.
type StaticProfile struct {
	name      string
	exact     map[Permission]struct{}
	wildcards []Permission
}

// NewStaticProfile creates a profile with the given permissions.
func NewStaticProfile(name string, permissions ...Permission) *StaticProfile {
	p := &StaticProfile{name: name, exact: make(map[Permission]struct{}, len(permissions))}
	for _, perm := range permissions {
		if strings.Contains(string(perm), WildcardAll) {
			p.wildcards = append(p.wildcards, perm)
			continue
		}
		p.exact[perm] = struct{}{}
	}
	return p
}

func (p *StaticProfile) Name() string { return p.name }

// Permissions returns every grant of the profile, sorted.
func (p *StaticProfile) Permissions() []Permission {
	return slices.Sorted(slices.Values(append(slices.Collect(maps.Keys(p.exact)), p.wildcards...)))
}

func (p *StaticProfile) HasPermission(requested Permission) bool {
	if _, ok := p.exact[requested]; ok {
		return true
	}
	return slices.ContainsFunc(p.wildcards, func(w Permission) bool { return w.Matches(requested) })
}

// StaticResolver maps subjects to fixed profiles. Tests use it in place of
// a database-backed resolver.
type StaticResolver[U comparable] struct {
	profiles map[U]Profile
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

// Set assigns a profile to a subject.
func (r *StaticResolver[U]) Set(user U, profile Profile) {
	r.profiles[user] = profile
}

func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	return r.profiles[user], nil
}
