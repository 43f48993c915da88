package services

import (
	"testing"
)

func testRules() []Rule {
	return []Rule{
		{
			Patterns: []string{"WHERE IS THE LIBRARY", "LIBRARY LOCATION"},
			Template: "The central library is in Block A, ground floor.",
		},
		{
			Patterns: []string{"* CONTACT *"},
			Template: "You can reach the college office at 0123-456789.",
		},
		{
			Patterns: []string{"WHAT ARE THE * HOURS"},
			Template: "The office is open 9 AM to 5 PM on working days.",
		},
	}
}

func TestRuleMatcherExact(t *testing.T) {
	m := NewRuleMatcher(testRules())

	// Matching is case- and punctuation-insensitive.
	got := m.Match("Where is the library?")
	if got != "The central library is in Block A, ground floor." {
		t.Fatalf("Match = %q", got)
	}
}

func TestRuleMatcherWildcard(t *testing.T) {
	m := NewRuleMatcher(testRules())

	got := m.Match("What is the contact number of the admissions office?")
	if got != "You can reach the college office at 0123-456789." {
		t.Fatalf("Match = %q", got)
	}

	got = m.Match("What are the library hours?")
	if got != "The office is open 9 AM to 5 PM on working days." {
		t.Fatalf("Match = %q", got)
	}
}

func TestRuleMatcherNoMatch(t *testing.T) {
	m := NewRuleMatcher(testRules())

	if got := m.Match("What is the hostel fee?"); got != RuleNoMatch {
		t.Fatalf("Match = %q, want sentinel", got)
	}
	if got := m.Match(""); got != RuleNoMatch {
		t.Fatalf("empty query Match = %q, want sentinel", got)
	}
}

func TestRuleMatcherExactBeatsWildcard(t *testing.T) {
	m := NewRuleMatcher([]Rule{
		{Patterns: []string{"* LIBRARY *"}, Template: "wildcard"},
		{Patterns: []string{"WHERE IS THE LIBRARY"}, Template: "exact"},
	})

	if got := m.Match("Where is the library"); got != "exact" {
		t.Fatalf("Match = %q, want exact rule to win", got)
	}
}

func TestRuleMatcherEmpty(t *testing.T) {
	m := &RuleMatcher{}
	if got := m.Match("anything at all"); got != RuleNoMatch {
		t.Fatalf("empty matcher returned %q", got)
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d", m.Len())
	}
}
