// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"sort"
	"strings"

	cliUtils "github.com/Fantom-foundation/enginect/go/ect/driver/cli"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/session"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

var GroupsCmd = cliUtils.AddCommonFlags(cli.Command{
	Action: doGroups,
	Name:   "groups",
	Usage:  "Computes the distribution of tests to groups and workers as CSV",
	Flags: []cli.Flag{
		cliUtils.FixturesFlag,
		cliUtils.FilterFlag,
		cliUtils.JobsFlag,
		cliUtils.MaxGroupSizeFlag,
		cliUtils.SeedFlag,
	},
})

func doGroups(context *cli.Context) error {
	filter, err := cliUtils.FilterFlag.Fetch(context)
	if err != nil {
		return err
	}
	source, err := cliUtils.FixturesFlag.Fetch(context)
	if err != nil {
		return err
	}
	tests, err := source.Tests(filter)
	if err != nil {
		return err
	}

	groups := session.Groups(tests, cliUtils.MaxGroupSizeFlag.Fetch(context))
	plans := session.Distribute(groups, cliUtils.JobsFlag.Fetch(context), cliUtils.SeedFlag.Fetch(context))
	fmt.Printf("%v", newGroupStatistics(plans))
	return nil
}

type groupStatistics struct {
	data map[group.Identifier]groupInfo
}

func newGroupStatistics(plans []*session.Plan) *groupStatistics {
	stats := &groupStatistics{}
	for _, plan := range plans {
		for id, total := range plan.Totals {
			stats.register(id, plan.Worker, total)
		}
	}
	return stats
}

func (s *groupStatistics) register(id group.Identifier, worker, tests int) {
	if s.data == nil {
		s.data = make(map[group.Identifier]groupInfo)
	}
	info := s.data[id]
	info.worker = worker
	info.numTests += tests
	s.data[id] = info
}

func (s *groupStatistics) getNumTestsFor(id group.Identifier) int {
	return s.data[id].numTests
}

func (s *groupStatistics) clone() *groupStatistics {
	return &groupStatistics{maps.Clone(s.data)}
}

func (s *groupStatistics) String() string {
	builder := strings.Builder{}

	ids := maps.Keys(s.data)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	builder.WriteString("group,base_hash,worker,num_tests\n")
	for _, id := range ids {
		info := s.data[id]
		builder.WriteString(fmt.Sprintf("%s,%s,%d,%d\n", id, id.BaseHash(), info.worker, info.numTests))
	}
	return builder.String()
}

type groupInfo struct {
	worker   int
	numTests int
}
