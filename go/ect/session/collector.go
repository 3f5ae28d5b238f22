// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/protocol"
	"golang.org/x/exp/maps"
)

// Collector gathers the verdicts of all workers of a session.
type Collector struct {
	verdicts []*protocol.Verdict
	failures int
	mu       sync.Mutex
}

func (c *Collector) Add(verdict *protocol.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts = append(c.verdicts, verdict)
	if !verdict.Passed {
		c.failures++
	}
}

func (c *Collector) NumVerdicts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.verdicts)
}

func (c *Collector) NumFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// Verdicts returns the collected verdicts sorted by test id.
func (c *Collector) Verdicts() []*protocol.Verdict {
	c.mu.Lock()
	res := make([]*protocol.Verdict, len(c.verdicts))
	copy(res, c.verdicts)
	c.mu.Unlock()
	sort.Slice(res, func(i, j int) bool { return res[i].TestID < res[j].TestID })
	return res
}

// Failures returns the verdicts of failed tests sorted by test id.
func (c *Collector) Failures() []*protocol.Verdict {
	var res []*protocol.Verdict
	for _, verdict := range c.Verdicts() {
		if !verdict.Passed {
			res = append(res, verdict)
		}
	}
	return res
}

// Summary aggregates the collected verdicts. total is the number of tests
// planned for the session; tests without verdict are counted as skipped.
func (c *Collector) Summary(total int) Summary {
	res := Summary{Total: total, Categories: map[protocol.Category]int{}}
	for _, verdict := range c.Verdicts() {
		res.Warnings += len(verdict.Warnings)
		if verdict.Passed {
			res.Passed++
			continue
		}
		res.Failed++
		res.Categories[verdict.Category()]++
	}
	res.Skipped = max(0, total-res.Passed-res.Failed)
	return res
}

// issue is the exported record of a failed test.
type issue struct {
	Test     string            `json:"test"`
	File     string            `json:"file,omitempty"`
	Group    string            `json:"group"`
	Category protocol.Category `json:"category"`
	Step     string            `json:"step"`
	Payload  int               `json:"payload"`
	Error    string            `json:"error"`
	Warnings []string          `json:"warnings,omitempty"`
	Duration string            `json:"duration"`
	Log      []protocol.Entry  `json:"conversation"`
}

// ExportFailures prints all failures to the given writer and writes the
// conversation of each failed test into a fresh directory created within
// parent, or the system's temporary directory if parent is empty. The path
// of the directory is returned, or an empty string if there is no failure.
func (c *Collector) ExportFailures(out io.Writer, parent string) (string, error) {
	failures := c.Failures()
	if len(failures) == 0 {
		return "", nil
	}
	jsonDir, err := os.MkdirTemp(parent, "ect_issues_*")
	if err != nil {
		return "", fmt.Errorf("failed to create output directory for %d issues: %w", len(failures), err)
	}
	for i, verdict := range failures {
		fmt.Fprintf(out, "----------------------------\n")
		fmt.Fprintf(out, "%s: %v\n", verdict.TestID, verdict.Failure)

		path := filepath.Join(jsonDir, fmt.Sprintf("issue_%06d_%s.json", i, fileName(verdict.TestID)))
		if err := writeIssue(path, verdict); err == nil {
			fmt.Fprintf(out, "Conversation dumped to %s\n", path)
		} else {
			fmt.Fprintf(out, "failed to dump conversation: %v\n", err)
		}
	}
	return jsonDir, nil
}

func writeIssue(path string, verdict *protocol.Verdict) error {
	record := issue{
		Test:     verdict.TestID,
		File:     verdict.File,
		Group:    verdict.Identifier.String(),
		Warnings: verdict.Warnings,
		Duration: verdict.Duration.Round(time.Millisecond).String(),
		Log:      verdict.Log,
	}
	if failure := verdict.Failure; failure != nil {
		record.Category = failure.Category
		record.Step = failure.Step
		record.Payload = failure.Payload
		record.Error = failure.Error()
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// fileName reduces a test id to a short string usable as part of a file name.
func fileName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
	if len(name) > 80 {
		name = name[len(name)-80:]
	}
	return name
}

// Summary is the aggregated result of a session.
type Summary struct {
	Total      int
	Passed     int
	Failed     int
	Skipped    int
	Warnings   int
	Categories map[protocol.Category]int
	Duration   time.Duration
}

// Print writes a human readable report of the summary.
func (s Summary) Print(out io.Writer) {
	fmt.Fprintf(out, "Executed %d of %d tests in %v\n", s.Passed+s.Failed, s.Total, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  passed:   %d\n", s.Passed)
	fmt.Fprintf(out, "  failed:   %d\n", s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(out, "  skipped:  %d\n", s.Skipped)
	}
	if s.Warnings > 0 {
		fmt.Fprintf(out, "  warnings: %d\n", s.Warnings)
	}
	categories := maps.Keys(s.Categories)
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, category := range categories {
		fmt.Fprintf(out, "    %-28s %d\n", category, s.Categories[category])
	}
}
