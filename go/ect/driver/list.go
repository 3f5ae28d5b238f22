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

	"github.com/Fantom-foundation/enginect/go/ect/client"
	cliUtils "github.com/Fantom-foundation/enginect/go/ect/driver/cli"
	"github.com/Fantom-foundation/enginect/go/ect/session"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

var ListCmd = cli.Command{
	Action: doList,
	Name:   "list",
	Usage:  "List all tests by id together with the group they are executed in",
	Flags: []cli.Flag{
		cliUtils.FixturesFlag,
		cliUtils.FilterFlag,
		cliUtils.MaxGroupSizeFlag,
	},
}

func doList(context *cli.Context) error {
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

	type entry struct{ id, group string }
	var entries []entry
	for _, g := range session.Groups(tests, cliUtils.MaxGroupSizeFlag.Fetch(context)) {
		for _, test := range g.Tests {
			entries = append(entries, entry{test.ID, g.Identifier.String()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	for _, e := range entries {
		fmt.Printf("%s\t%s\n", e.id, e.group)
	}
	return nil
}

var LaunchersCmd = cli.Command{
	Action: doLaunchers,
	Name:   "launchers",
	Usage:  "List the supported client launcher kinds",
}

func doLaunchers(*cli.Context) error {
	kinds := maps.Keys(client.GetAllRegisteredLaunchers())
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Println(kind)
	}
	return nil
}
