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
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	matcher, err := NewMatcher([]Rule{
		{Pattern: "invalid merkle root", Category: "bad-state-root"},
		{Pattern: "invalid gas used", Category: "bad-gas-used"},
		{Pattern: `^nonce too (high|low)`, Regex: true, Category: "bad-nonce"},
		{Pattern: "invalid", Category: "generic-invalid"},
	})
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	return matcher
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	matcher := newTestMatcher(t)
	tests := map[string]string{
		"invalid merkle root (remote: 0x01 local: 0x02)": "bad-state-root",
		"block 12: invalid gas used":                     "bad-gas-used",
		"nonce too low: address 0x00":                    "bad-nonce",
		"invalid block":                                  "generic-invalid",
	}
	for raw, want := range tests {
		got, found := matcher.Match(raw)
		if !found || got != want {
			t.Errorf("unexpected category for %q, wanted %q, got %q (%t)", raw, want, got, found)
		}
	}
}

func TestMatcher_RegexIsAnchoredAsWritten(t *testing.T) {
	matcher := newTestMatcher(t)
	if got, found := matcher.Match("tx: nonce too high"); found {
		t.Errorf("expected no match, got %q", got)
	}
}

func TestMatcher_UnknownMessagesAreUnmapped(t *testing.T) {
	matcher := newTestMatcher(t)
	if got, found := matcher.Match("something went wrong"); found {
		t.Errorf("expected no match, got %q", got)
	}
	var nilMatcher *Matcher
	if _, found := nilMatcher.Match("invalid merkle root"); found {
		t.Errorf("nil matcher should not match anything")
	}
}

func TestMatcher_Check(t *testing.T) {
	matcher := newTestMatcher(t)
	tests := []struct {
		raw      string
		expected string
		outcome  Outcome
		category string
	}{
		{"invalid merkle root", "bad-state-root", Matched, "bad-state-root"},
		{"invalid merkle root", "bad-gas-used|bad-state-root", Matched, "bad-state-root"},
		{"invalid merkle root", "bad-gas-used", Mismatched, "bad-state-root"},
		{"no idea", "bad-state-root", Unmapped, ""},
	}
	for _, test := range tests {
		outcome, category := matcher.Check(test.raw, test.expected)
		if outcome != test.outcome || category != test.category {
			t.Errorf("unexpected result for %q/%q, wanted %v/%q, got %v/%q",
				test.raw, test.expected, test.outcome, test.category, outcome, category)
		}
	}
}

func TestNewMatcher_RejectsInvalidRules(t *testing.T) {
	tests := map[string]Rule{
		"empty pattern":  {Category: "x"},
		"empty category": {Pattern: "x"},
		"broken regex":   {Pattern: "(", Regex: true, Category: "x"},
	}
	for name, rule := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewMatcher([]Rule{rule}); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestAlternatives_SplitsAndTrims(t *testing.T) {
	want := []string{"A", "B", "C"}
	if got := Alternatives(" A|B || C "); !reflect.DeepEqual(want, got) {
		t.Errorf("unexpected alternatives, wanted %v, got %v", want, got)
	}
}

func TestLoadTable_ReadsYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geth.yaml")
	content := `
strict: true
rules:
  - pattern: "invalid merkle root"
    category: BlockException.INVALID_STATE_ROOT
  - pattern: "^max initcode size exceeded"
    regex: true
    category: TransactionException.INITCODE_SIZE_EXCEEDED
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("failed to load table: %v", err)
	}
	if !table.Strict || len(table.Rules) != 2 || !table.Rules[1].Regex {
		t.Fatalf("unexpected table content: %+v", table)
	}
	matcher, err := table.Matcher()
	if err != nil {
		t.Fatalf("failed to compile table: %v", err)
	}
	if got, _ := matcher.Match("max initcode size exceeded: 50000"); got != "TransactionException.INITCODE_SIZE_EXCEEDED" {
		t.Errorf("unexpected category %q", got)
	}
}

func TestParseTable_ReportsSyntaxErrors(t *testing.T) {
	if _, err := ParseTable([]byte("rules: [")); err == nil {
		t.Errorf("expected an error")
	}
}
