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
	"sort"

	"github.com/Fantom-foundation/enginect/go/ect/fixture"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"golang.org/x/exp/maps"
	"pgregory.net/rand"
)

// Assignment binds a test to the group it is executed in.
type Assignment struct {
	Test       *fixture.TestCase
	Identifier group.Identifier
}

// Plan is the list of tests a single worker executes sequentially, together
// with the number of tests per group. Tests of a group are contiguous.
type Plan struct {
	Worker int
	Tests  []Assignment
	Totals map[group.Identifier]int
}

// Group is a set of tests sharing a client instance.
type Group struct {
	Identifier group.Identifier
	Tests      []*fixture.TestCase
}

// Groups partitions the tests by their pre-allocation hash. Groups with more
// than maxSize tests are split into subgroups base:0..k-1 of at most maxSize
// tests each. A maxSize below 1 disables splitting. The result is sorted by
// identifier, tests within groups keep their order.
func Groups(tests []*fixture.TestCase, maxSize int) []Group {
	byHash := map[string][]*fixture.TestCase{}
	for _, test := range tests {
		byHash[test.PreHash] = append(byHash[test.PreHash], test)
	}
	hashes := maps.Keys(byHash)
	sort.Strings(hashes)

	var res []Group
	for _, hash := range hashes {
		members := byHash[hash]
		if maxSize < 1 || len(members) <= maxSize {
			res = append(res, Group{Identifier: group.Identifier(hash), Tests: members})
			continue
		}
		for index := 0; index*maxSize < len(members); index++ {
			end := min((index+1)*maxSize, len(members))
			res = append(res, Group{
				Identifier: group.NewSubgroup(hash, index),
				Tests:      members[index*maxSize : end],
			})
		}
	}
	return res
}

// Distribute assigns whole groups to the given number of workers, largest
// groups first, each to the worker with the fewest tests so far. A non-zero
// seed shuffles the order of groups and tests within each worker.
func Distribute(groups []Group, workers int, seed uint64) []*Plan {
	if workers < 1 {
		workers = 1
	}
	plans := make([]*Plan, workers)
	for i := range plans {
		plans[i] = &Plan{Worker: i, Totals: map[group.Identifier]int{}}
	}

	order := make([]Group, len(groups))
	copy(order, groups)
	sort.SliceStable(order, func(i, j int) bool {
		return len(order[i].Tests) > len(order[j].Tests)
	})

	assigned := make([][]Group, workers)
	for _, g := range order {
		if len(g.Tests) == 0 {
			continue
		}
		target := 0
		for i, plan := range plans {
			if len(plan.Tests) < len(plans[target].Tests) {
				target = i
			}
		}
		plan := plans[target]
		assigned[target] = append(assigned[target], g)
		plan.Totals[g.Identifier] = len(g.Tests)
		for _, test := range g.Tests {
			plan.Tests = append(plan.Tests, Assignment{Test: test, Identifier: g.Identifier})
		}
	}

	if seed != 0 {
		random := rand.New(seed)
		for i, plan := range plans {
			plan.Tests = shuffled(random, assigned[i])
		}
	}
	return plans
}

// shuffled randomizes the order of the given groups and of the tests within
// each group, keeping the tests of a group contiguous.
func shuffled(random *rand.Rand, groups []Group) []Assignment {
	random.Shuffle(len(groups), func(i, j int) {
		groups[i], groups[j] = groups[j], groups[i]
	})
	var res []Assignment
	for _, g := range groups {
		tests := make([]*fixture.TestCase, len(g.Tests))
		copy(tests, g.Tests)
		random.Shuffle(len(tests), func(i, j int) {
			tests[i], tests[j] = tests[j], tests[i]
		})
		for _, test := range tests {
			res = append(res, Assignment{Test: test, Identifier: g.Identifier})
		}
	}
	return res
}
