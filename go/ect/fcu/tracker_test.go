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
	"testing"

	"github.com/Fantom-foundation/enginect/go/ect/group"
)

func TestTracker_CountsArePerIdentifier(t *testing.T) {
	tracker := NewTracker(1)
	for i := 1; i <= 3; i++ {
		if got := tracker.IncrementTestCount("a"); got != i {
			t.Errorf("unexpected count, wanted %d, got %d", i, got)
		}
	}
	if got := tracker.IncrementTestCount("a:1"); got != 1 {
		t.Errorf("subgroups must be counted separately, got %d", got)
	}
	if got := tracker.TestCount("b"); got != 0 {
		t.Errorf("unexpected count for unknown identifier: %d", got)
	}
}

func TestTracker_FrequencyPolicy(t *testing.T) {
	tests := map[int][]bool{
		-1: {false, false, false, false},
		0:  {false, false, false, false},
		1:  {true, true, true, true},
		2:  {false, true, false, true},
		3:  {false, false, true, false},
	}
	for frequency, want := range tests {
		tracker := NewTracker(frequency)
		id := group.Identifier("0xabc")
		for i, expected := range want {
			tracker.IncrementTestCount(id)
			if got := tracker.ShouldPerformFCU(id); got != expected {
				t.Errorf("frequency %d, test %d: wanted %t, got %t", frequency, i+1, expected, got)
			}
		}
	}
}

func TestTracker_NoFinalizationBeforeFirstTest(t *testing.T) {
	tracker := NewTracker(1)
	if tracker.ShouldPerformFCU("0xabc") {
		t.Errorf("no test was registered, should not finalize")
	}
}
