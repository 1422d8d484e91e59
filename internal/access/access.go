// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package access

import "strings"

// Rule is one allow-list entry: an optional uid, an optional gid, and
// the set of key patterns it grants access to. At least one of User
// or Group must be set; a rule with neither never matches anything
// (internal/confdconfig rejects an allow entry that names neither, and
// builds a rule with neither when a named user or group fails to
// resolve).
type Rule struct {
	User     *uint32
	Group    *uint32
	Patterns []string
}

// Gate holds the configured allow-list and answers Allowed queries
// against it. A zero-value Gate (empty allow-list) denies every
// request, per spec.md §4.4's "empty allow-list denies all".
type Gate struct {
	rules []Rule
}

// New builds a Gate from a fixed rule set. The slice is copied so the
// caller's backing array can be reused or mutated afterward.
func New(rules []Rule) *Gate {
	g := &Gate{rules: make([]Rule, len(rules))}
	copy(g.rules, rules)
	return g
}

// Allowed reports whether a caller identified by (uid, gid) may access
// key, by a linear first-match scan of the allow-list (spec.md §4.4).
func (g *Gate) Allowed(uid, gid uint32, key string) bool {
	for _, rule := range g.rules {
		if !identityMatches(rule, uid, gid) {
			continue
		}
		if patternsMatch(rule.Patterns, key) {
			return true
		}
	}
	return false
}

// identityMatches reports whether a rule's optional uid/gid
// constraints match the caller. Per spec.md §4.4, "either identity is
// specified and matches the caller (both must match when both are
// set)": at least one of User/Group must be configured, and every
// configured field must match.
func identityMatches(rule Rule, uid, gid uint32) bool {
	if rule.User == nil && rule.Group == nil {
		return false
	}
	if rule.User != nil && *rule.User != uid {
		return false
	}
	if rule.Group != nil && *rule.Group != gid {
		return false
	}
	return true
}

// patternsMatch reports whether any pattern in patterns matches key.
func patternsMatch(patterns []string, key string) bool {
	for _, pattern := range patterns {
		if patternMatches(pattern, key) {
			return true
		}
	}
	return false
}

// wildcardSuffix is the token marking a pattern as a prefix wildcard
// rather than a literal key.
const wildcardSuffix = ".*"

// patternMatches implements spec.md §4.4's exact match rule: "equality
// for literal patterns, prefix-then-separator for wildcard patterns
// (the pattern a.b.* matches exactly keys whose name is a.b followed
// by . and at least one more character; a.b alone does not match
// a.b.*)".
func patternMatches(pattern, key string) bool {
	prefix, ok := strings.CutSuffix(pattern, wildcardSuffix)
	if !ok {
		return pattern == key
	}
	return strings.HasPrefix(key, prefix+".") && len(key) > len(prefix)+1
}
