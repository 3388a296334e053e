package domain

import "strings"

// RoleSet is an ordered set of distinct, lower-cased role tags. Insertion
// order is preserved so responses render roles the way they were granted.
type RoleSet struct {
	tags []string
}

// NewRoleSet builds a RoleSet from raw tags: each entry is trimmed and
// lower-cased, empties are dropped, duplicates keep their first position.
func NewRoleSet(tags ...string) RoleSet {
	var rs RoleSet
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		rs.tags = append(rs.tags, t)
	}
	return rs
}

// Has reports whether the set contains tag.
func (rs RoleSet) Has(tag string) bool {
	for _, t := range rs.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags returns the tags in insertion order. The returned slice is a copy.
func (rs RoleSet) Tags() []string {
	out := make([]string, len(rs.tags))
	copy(out, rs.tags)
	return out
}

// Empty reports whether the set holds no tags.
func (rs RoleSet) Empty() bool {
	return len(rs.tags) == 0
}

// DeriveRoles maps a stored user record to its effective role set.
//
// The multi-role Roles list wins when present. Otherwise the legacy
// singular Role field is the fallback signal: "admin" grants the
// highest-privilege tag, any other non-empty value grants the
// lowest-privilege tag, and an empty value yields no permissions.
//
// Pure function. Call it on every authorization decision — roles can change
// between requests, so a set cached on a token goes stale.
func DeriveRoles(u User) RoleSet {
	rs := NewRoleSet(u.Roles...)
	if !rs.Empty() {
		return rs
	}

	switch strings.ToLower(strings.TrimSpace(u.Role)) {
	case "":
		return RoleSet{}
	case "admin":
		return NewRoleSet(RoleShogunAdmin)
	default:
		return NewRoleSet(RoleClient)
	}
}
