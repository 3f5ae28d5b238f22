// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package exceptions

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

// Rule maps raw client error messages to a canonical exception category.
// A rule matches if the message contains Pattern, or, if Regex is set, if
// the message matches Pattern interpreted as a regular expression.
type Rule struct {
	Pattern  string `yaml:"pattern"`
	Regex    bool   `yaml:"regex,omitempty"`
	Category string `yaml:"category"`
}

// Matcher classifies raw error strings reported by a client. Rules are
// evaluated in order, the first matching rule wins.
type Matcher struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// NewMatcher creates a matcher for the given ordered list of rules.
func NewMatcher(rules []Rule) (*Matcher, error) {
	res := &Matcher{rules: make([]compiledRule, 0, len(rules))}
	for i, rule := range rules {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		if rule.Category == "" {
			return nil, fmt.Errorf("rule %d (%q): empty category", i, rule.Pattern)
		}
		compiled := compiledRule{Rule: rule}
		if rule.Regex {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			compiled.re = re
		}
		res.rules = append(res.rules, compiled)
	}
	return res, nil
}

// Match returns the category of the first rule matching the given message.
// The second result is false if no rule matches.
func (m *Matcher) Match(raw string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, rule := range m.rules {
		if rule.matches(raw) {
			return rule.Category, true
		}
	}
	return "", false
}

func (r *compiledRule) matches(raw string) bool {
	if r.re != nil {
		return r.re.MatchString(raw)
	}
	return strings.Contains(raw, r.Pattern)
}

// Len returns the number of rules of this matcher.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Outcome is the result of checking a raw message against an expectation.
type Outcome int

const (
	Matched Outcome = iota
	Mismatched
	Unmapped
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Mismatched:
		return "mismatched"
	case Unmapped:
		return "unmapped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Check classifies the raw message and compares the result with the expected
// category. The expectation may list several acceptable categories separated
// by '|'. The category the message was mapped to is returned alongside.
func (m *Matcher) Check(raw, expected string) (Outcome, string) {
	category, found := m.Match(raw)
	if !found {
		return Unmapped, ""
	}
	if slices.Contains(Alternatives(expected), category) {
		return Matched, category
	}
	return Mismatched, category
}

// Alternatives splits an expected category list into its elements.
func Alternatives(expected string) []string {
	parts := strings.Split(expected, "|")
	res := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
