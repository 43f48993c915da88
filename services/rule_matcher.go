package services

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"college-chatbot-platform/internal/logger"
)

// RuleNoMatch is the sentinel the rule matcher returns when no rule
// fires. The orchestrator treats it as "not confident", never as an
// error.
const RuleNoMatch = "Sorry, I don't have information on that."

// Rule is one declarative pattern->template entry. Patterns are matched
// against the normalized (uppercase, punctuation-stripped) query; "*"
// matches any run of words.
type Rule struct {
	Patterns []string `json:"patterns"`
	Template string   `json:"template"`
}

type compiledRule struct {
	exact    map[string]bool
	wildcard []*regexp.Regexp
	template string
}

// RuleMatcher answers queries by exact pattern matching against a
// loaded rule set. The rule set is read-only after construction, so
// concurrent Match calls are safe.
type RuleMatcher struct {
	rules []compiledRule
}

// LoadRuleMatcher reads a JSON rule file. A missing file yields an
// empty matcher that never matches, not an error.
func LoadRuleMatcher(path string) (*RuleMatcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("Rule file not found, rule matcher will never match", "path", path)
			return &RuleMatcher{}, nil
		}
		return nil, err
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %v", path, err)
	}

	return NewRuleMatcher(rules), nil
}

func NewRuleMatcher(rules []Rule) *RuleMatcher {
	m := &RuleMatcher{}
	for _, rule := range rules {
		compiled := compiledRule{
			exact:    make(map[string]bool),
			template: rule.Template,
		}
		for _, pattern := range rule.Patterns {
			normalized := normalizeForRules(pattern)
			if strings.Contains(normalized, "*") {
				compiled.wildcard = append(compiled.wildcard, wildcardToRegexp(normalized))
			} else {
				compiled.exact[normalized] = true
			}
		}
		m.rules = append(m.rules, compiled)
	}
	return m
}

// Match returns the template of the first matching rule, or RuleNoMatch
// when nothing fires. Exact patterns are checked before wildcards so
// the most specific rule wins.
func (m *RuleMatcher) Match(query string) string {
	normalized := normalizeForRules(query)
	if normalized == "" {
		return RuleNoMatch
	}

	for _, rule := range m.rules {
		if rule.exact[normalized] {
			return rule.template
		}
	}

	for _, rule := range m.rules {
		for _, pat := range rule.wildcard {
			if pat.MatchString(normalized) {
				return rule.template
			}
		}
	}

	return RuleNoMatch
}

// Len returns the number of loaded rules.
func (m *RuleMatcher) Len() int {
	return len(m.rules)
}

var nonRuleChars = regexp.MustCompile(`[^A-Z0-9* ]+`)
var ruleSpaces = regexp.MustCompile(`\s+`)

func normalizeForRules(s string) string {
	upper := strings.ToUpper(strings.TrimSpace(s))
	upper = nonRuleChars.ReplaceAllString(upper, " ")
	return strings.TrimSpace(ruleSpaces.ReplaceAllString(upper, " "))
}

func wildcardToRegexp(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(strings.TrimSpace(part))
	}
	expr := "^" + strings.Join(parts, `\s*.*\s*`) + "$"
	return regexp.MustCompile(expr)
}
