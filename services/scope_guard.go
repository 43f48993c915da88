package services

import (
	"regexp"
	"strings"

	"college-chatbot-platform/models"
)

var collegeScopeKeywords = []string{
	"admission", "apply", "application", "eligibility", "documents",
	"fees", "fee", "refund", "scholarship",
	"hostel", "mess", "transport", "bus",
	"exam", "results", "revaluation", "hall ticket",
	"semester", "timetable", "syllabus", "attendance", "internal",
	"department", "course", "branch", "faculty",
	"bonafide", "noc", "certificate", "id card",
	"placement", "internship", "training", "cdc", "tpo",
	"library", "lab", "campus", "club",
}

var outOfScopePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbitcoin|crypto|stock|share market\b`),
	regexp.MustCompile(`(?i)\bvirat|kohli|cricket|ipl|football|messi|ronaldo\b`),
	regexp.MustCompile(`(?i)\bmovie|actor|actress|netflix|anime\b`),
	regexp.MustCompile(`(?i)\bpolitics|election|minister|prime minister\b`),
	regexp.MustCompile(`(?i)\bgirlfriend|boyfriend|love letter|breakup\b`),
	regexp.MustCompile(`(?i)\bblack hole|galaxy|universe|space\b`),
}

var programmingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpython|java|c\+\+|javascript|react|node|flask|django\b`),
	regexp.MustCompile(`(?i)\bwrite code|program|bug|error|exception|stack trace\b`),
	regexp.MustCompile(`(?i)\bleetcode|dsa|binary search|dp\b`),
}

var greetingKeywords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "greetings": true,
	"good morning": true, "good afternoon": true, "good evening": true,
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

// Topics that must never be answered by the generative strategy.
// Exact facts (addresses, phone numbers, hours) go to the rule matcher
// only, since generation over retrieved chunks can distort them.
var deterministicOnlyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blocation|address|where is the college|map\b`),
	regexp.MustCompile(`(?i)\bphone|contact|number|email|call\b`),
	regexp.MustCompile(`(?i)\btiming|opening hours|working hours|office hours\b`),
}

// ScopeGuard decides whether a query belongs to the college domain.
// Unmatched queries are allowed through; the strategies are trusted to
// say "no information" rather than hallucinate.
type ScopeGuard struct{}

func NewScopeGuard() *ScopeGuard {
	return &ScopeGuard{}
}

// IsGreeting reports whether the query is just a greeting.
func (g *ScopeGuard) IsGreeting(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.TrimSpace(punctuation.ReplaceAllString(q, ""))
	return greetingKeywords[q]
}

// CheckScope classifies the query as greeting, in scope, out of scope,
// or neutral-allow.
func (g *ScopeGuard) CheckScope(query string) models.ScopeResult {
	q := strings.ToLower(strings.TrimSpace(query))

	if g.IsGreeting(query) {
		return models.ScopeResult{InScope: true, Reason: models.ScopeGreeting}
	}

	for _, pat := range outOfScopePatterns {
		if pat.MatchString(query) {
			return models.ScopeResult{InScope: false, Reason: models.ScopeOut}
		}
	}

	// Programming questions are blocked only when the intent is clearly
	// "write me code"; "python course" stays in scope.
	for _, pat := range programmingPatterns {
		if pat.MatchString(query) {
			if strings.Contains(q, "code") || strings.Contains(q, "program") {
				return models.ScopeResult{InScope: false, Reason: models.ScopeProgrammingOut}
			}
		}
	}

	for _, keyword := range collegeScopeKeywords {
		if strings.Contains(q, keyword) {
			return models.ScopeResult{InScope: true, Reason: models.ScopeCollege}
		}
	}

	return models.ScopeResult{InScope: true, Reason: models.ScopeNeutralAllow}
}

// RequiresDeterministic reports whether the query touches topics that
// must be answered by the rule matcher only.
func (g *ScopeGuard) RequiresDeterministic(query string) bool {
	for _, pat := range deterministicOnlyPatterns {
		if pat.MatchString(query) {
			return true
		}
	}
	return false
}
