// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package access

import "testing"

func u32(v uint32) *uint32 { return &v }

func TestEmptyGateDeniesAll(t *testing.T) {
	g := New(nil)
	if g.Allowed(1000, 1000, "anything") {
		t.Fatal("empty gate should deny all")
	}
}

func TestExactPatternMatch(t *testing.T) {
	g := New([]Rule{{User: u32(1000), Patterns: []string{"net.hostname"}}})

	if !g.Allowed(1000, 0, "net.hostname") {
		t.Error("expected allow for exact match")
	}
	if g.Allowed(1000, 0, "net.hostname.extra") {
		t.Error("exact pattern must not match a longer key")
	}
}

func TestWildcardPatternMatch(t *testing.T) {
	g := New([]Rule{{User: u32(1000), Patterns: []string{"a.b.*"}}})

	if !g.Allowed(1000, 0, "a.b.c") {
		t.Error("expected allow for a.b.c under a.b.*")
	}
	if !g.Allowed(1000, 0, "a.b.c.d") {
		t.Error("expected allow for a.b.c.d under a.b.*")
	}
	if g.Allowed(1000, 0, "a.b") {
		t.Error("a.b alone must not match a.b.*")
	}
	if g.Allowed(1000, 0, "a.bc") {
		t.Error("a.bc must not match a.b.* (no separator)")
	}
}

func TestUserAndGroupBothMustMatch(t *testing.T) {
	g := New([]Rule{{User: u32(1000), Group: u32(2000), Patterns: []string{"k"}}})

	if g.Allowed(1000, 9999, "k") {
		t.Error("group mismatch should deny when both are configured")
	}
	if g.Allowed(9999, 2000, "k") {
		t.Error("user mismatch should deny when both are configured")
	}
	if !g.Allowed(1000, 2000, "k") {
		t.Error("expected allow when both match")
	}
}

func TestGroupOnlyRuleIgnoresUser(t *testing.T) {
	g := New([]Rule{{Group: u32(2000), Patterns: []string{"k"}}})

	if !g.Allowed(42, 2000, "k") {
		t.Error("expected allow: only group is constrained, and it matches")
	}
	if g.Allowed(42, 9999, "k") {
		t.Error("expected deny: group does not match")
	}
}

func TestRuleWithNoIdentityNeverMatches(t *testing.T) {
	g := New([]Rule{{Patterns: []string{"k"}}})
	if g.Allowed(1000, 1000, "k") {
		t.Fatal("a rule with neither user nor group must never match")
	}
}

func TestLaterRuleAllowsWhenEarlierDoesNotMatch(t *testing.T) {
	g := New([]Rule{
		{User: u32(1000), Patterns: []string{"secret.*"}},
		{Group: u32(0), Patterns: []string{"secret.*"}},
	})
	// Caller matches only the second rule.
	if !g.Allowed(9999, 0, "secret.key") {
		t.Fatal("expected allow via the second rule")
	}
}
