// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fcu

import (
	"sync"

	"github.com/Fantom-foundation/enginect/go/ect/group"
)

// Tracker counts the tests run per group identifier and decides, based on a
// configured frequency, whether a test should finalize its valid payloads
// with a forkchoice update. A frequency of 0 disables finalization, 1
// finalizes in every test and N finalizes in every N-th test of a group.
type Tracker struct {
	frequency int
	counts    map[group.Identifier]int
	mu        sync.Mutex
}

// NewTracker creates a tracker with the given frequency. Negative
// frequencies are treated like 0.
func NewTracker(frequency int) *Tracker {
	if frequency < 0 {
		frequency = 0
	}
	return &Tracker{
		frequency: frequency,
		counts:    map[group.Identifier]int{},
	}
}

// Frequency returns the configured frequency.
func (t *Tracker) Frequency() int {
	return t.frequency
}

// IncrementTestCount registers a new test for the given identifier and
// returns the updated number of tests seen for it.
func (t *Tracker) IncrementTestCount(id group.Identifier) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[id]++
	return t.counts[id]
}

// TestCount returns the number of tests registered for the given identifier.
func (t *Tracker) TestCount(id group.Identifier) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[id]
}

// ShouldPerformFCU reports whether the current test of the given group
// should finalize its payloads.
func (t *Tracker) ShouldPerformFCU(id group.Identifier) bool {
	if t.frequency == 0 {
		return false
	}
	count := t.TestCount(id)
	return count > 0 && count%t.frequency == 0
}
