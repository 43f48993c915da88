package services

import (
	"testing"

	"college-chatbot-platform/models"
)

func TestCheckScopeCollegeQueries(t *testing.T) {
	g := NewScopeGuard()

	queries := []string{
		"What is the admission process?",
		"How much is the hostel fee?",
		"When will revaluation results come?",
	}
	for _, q := range queries {
		result := g.CheckScope(q)
		if !result.InScope || result.Reason != models.ScopeCollege {
			t.Errorf("CheckScope(%q) = %+v, want in-scope college", q, result)
		}
	}
}

func TestCheckScopeOutOfScope(t *testing.T) {
	g := NewScopeGuard()

	queries := []string{
		"Who won the IPL final?",
		"Should I invest in bitcoin?",
		"Tell me about black hole physics",
	}
	for _, q := range queries {
		result := g.CheckScope(q)
		if result.InScope {
			t.Errorf("CheckScope(%q) in scope, want out of scope", q)
		}
	}
}

func TestCheckScopeProgramming(t *testing.T) {
	g := NewScopeGuard()

	// Asking to write code is blocked.
	result := g.CheckScope("write code for binary search in python")
	if result.InScope || result.Reason != models.ScopeProgrammingOut {
		t.Errorf("code-writing query = %+v, want programming_out_of_scope", result)
	}

	// Asking about a course that mentions a language is allowed.
	result = g.CheckScope("Is there a python course in the CSE department?")
	if !result.InScope {
		t.Errorf("course query rejected: %+v", result)
	}
}

func TestCheckScopeGreeting(t *testing.T) {
	g := NewScopeGuard()

	for _, q := range []string{"hi", "Hello!", "good morning"} {
		result := g.CheckScope(q)
		if result.Reason != models.ScopeGreeting {
			t.Errorf("CheckScope(%q) reason = %q, want greeting", q, result.Reason)
		}
	}

	if g.IsGreeting("hello, what is the fee?") {
		t.Error("greeting followed by a question is not a bare greeting")
	}
}

func TestCheckScopeNeutralAllowed(t *testing.T) {
	g := NewScopeGuard()

	result := g.CheckScope("Can you help me with something?")
	if !result.InScope || result.Reason != models.ScopeNeutralAllow {
		t.Errorf("neutral query = %+v, want neutral_allow", result)
	}
}

func TestRequiresDeterministic(t *testing.T) {
	g := NewScopeGuard()

	cases := map[string]bool{
		"What is the contact number of the office?": true,
		"What is the college address?":              true,
		"What are the office hours?":                true,
		"What is the hostel fee?":                   false,
	}
	for q, want := range cases {
		if got := g.RequiresDeterministic(q); got != want {
			t.Errorf("RequiresDeterministic(%q) = %v, want %v", q, got, want)
		}
	}
}
