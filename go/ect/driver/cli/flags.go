// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/fixture"
	"github.com/Fantom-foundation/enginect/go/ect/protocol"
	"github.com/urfave/cli/v2"
)

type filterFlagType struct {
	cli.StringFlag
}

var FilterFlag = &filterFlagType{
	cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "execute only tests which id matches the given regex",
		Value:   "",
	},
}

func (f *filterFlagType) Fetch(context *cli.Context) (*regexp.Regexp, error) {
	return regexp.Compile(context.String(f.Name))
}

type fixturesFlagType struct {
	cli.StringFlag
}

var FixturesFlag = &fixturesFlagType{
	cli.StringFlag{
		Name:      "fixtures",
		Usage:     "directory containing the test fixtures and the pre_alloc group files",
		Required:  true,
		TakesFile: true,
	},
}

// Fetch opens the fixture directory.
func (f *fixturesFlagType) Fetch(context *cli.Context) (*fixture.Source, error) {
	return fixture.Open(context.String(f.Name), fixture.DefaultCacheSize)
}

type clientFlagType struct {
	cli.StringFlag
}

var ClientFlag = &clientFlagType{
	cli.StringFlag{
		Name:      "client",
		Aliases:   []string{"c"},
		Usage:     "YAML file configuring the client under test",
		Required:  true,
		TakesFile: true,
	},
}

func (f *clientFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type modeFlagType struct {
	cli.StringFlag
}

var ModeFlag = &modeFlagType{
	cli.StringFlag{
		Name:  "mode",
		Usage: "test mode, one of 'validation' or 'production'",
		Value: protocol.Validation.String(),
	},
}

func (f *modeFlagType) Fetch(context *cli.Context) (protocol.Mode, error) {
	return protocol.ParseMode(context.String(f.Name))
}

type jobsFlagType struct {
	cli.IntFlag
}

var JobsFlag = &jobsFlagType{
	cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "number of client instances run simultaneously",
		Value:   runtime.NumCPU(),
	},
}

func (f *jobsFlagType) Fetch(context *cli.Context) int {
	if jobs := context.Int(f.Name); jobs > 0 {
		return jobs
	}
	return runtime.NumCPU()
}

type maxGroupSizeFlagType struct {
	cli.IntFlag
}

var MaxGroupSizeFlag = &maxGroupSizeFlagType{
	cli.IntFlag{
		Name:  "max-group-size",
		Usage: "split groups with more tests into subgroups run on separate instances, 0 disables splitting",
		Value: 400,
	},
}

func (f *maxGroupSizeFlagType) Fetch(context *cli.Context) int {
	return max(0, context.Int(f.Name))
}

type fcuFrequencyFlagType struct {
	cli.IntFlag
}

var FCUFrequencyFlag = &fcuFrequencyFlagType{
	cli.IntFlag{
		Name:  "fcu-frequency",
		Usage: "finalize valid payloads in every n-th test of a group, 0 never",
		Value: 1,
	},
}

func (f *fcuFrequencyFlagType) Fetch(context *cli.Context) int {
	return max(0, context.Int(f.Name))
}

type strictFlagType struct {
	cli.BoolFlag
}

var StrictExceptionsFlag = &strictFlagType{
	cli.BoolFlag{
		Name:  "strict-exceptions",
		Usage: "fail tests with validation errors missing in the client's exception mapping",
	},
}

// Fetch returns the flag's value and whether it was set explicitly.
func (f *strictFlagType) Fetch(context *cli.Context) (bool, bool) {
	return context.Bool(f.Name), context.IsSet(f.Name)
}

type retryFlagsType struct {
	Attempts *cli.IntFlag
	Delay    *cli.DurationFlag
}

var RetryFlags = &retryFlagsType{
	Attempts: &cli.IntFlag{
		Name:  "genesis-retries",
		Usage: "number of genesis handshake attempts while the client is syncing (default depends on mode)",
	},
	Delay: &cli.DurationFlag{
		Name:  "genesis-retry-delay",
		Usage: "delay between genesis handshake attempts (default depends on mode)",
	},
}

func (f *retryFlagsType) Flags() []cli.Flag {
	return []cli.Flag{f.Attempts, f.Delay}
}

// Fetch returns the retry policy of the given mode updated by the flags set
// on the command line.
func (f *retryFlagsType) Fetch(context *cli.Context, mode protocol.Mode) protocol.RetryPolicy {
	policy := protocol.DefaultRetryPolicy(mode)
	if context.IsSet(f.Attempts.Name) {
		policy.Attempts = context.Int(f.Attempts.Name)
	}
	if context.IsSet(f.Delay.Name) {
		policy.Delay = context.Duration(f.Delay.Name)
		if policy.MaxDelay != 0 && policy.MaxDelay < policy.Delay {
			policy.MaxDelay = policy.Delay
		}
	}
	return policy
}

type durationFlagType struct {
	cli.DurationFlag
}

var BuildWaitFlag = &durationFlagType{
	cli.DurationFlag{
		Name:  "build-wait",
		Usage: "time granted to the client for building a payload in production mode",
		Value: protocol.DefaultBuildWait,
	},
}

var TestTimeoutFlag = &durationFlagType{
	cli.DurationFlag{
		Name:  "test-timeout",
		Usage: "maximum duration of a single test, 0 for no limit",
		Value: 5 * time.Minute,
	},
}

func (f *durationFlagType) Fetch(context *cli.Context) time.Duration {
	return context.Duration(f.Name)
}

type seedFlagType struct {
	cli.Uint64Flag
}

var SeedFlag = &seedFlagType{
	cli.Uint64Flag{
		Name:    "seed",
		Aliases: []string{"s"},
		Usage:   "seed for shuffling the test order, 0 keeps the order of the fixtures",
	},
}

func (f *seedFlagType) Fetch(context *cli.Context) uint64 {
	return context.Uint64(f.Name)
}

type maxErrorsFlagType struct {
	cli.IntFlag
}

var MaxErrorsFlag = &maxErrorsFlagType{
	cli.IntFlag{
		Name:  "max-errors",
		Usage: "aborts testing after the given number of failed tests",
		Value: -1,
	},
}

func (f *maxErrorsFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

type stringFlagType struct {
	cli.StringFlag
}

var MetricsAddrFlag = &stringFlagType{
	cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "address serving prometheus metrics, e.g. localhost:9090",
	},
}

var LogDirFlag = &stringFlagType{
	cli.StringFlag{
		Name:      "log-dir",
		Usage:     "directory of the rotated JSON log file, no file is written if empty",
		TakesFile: true,
	},
}

var IssuesDirFlag = &stringFlagType{
	cli.StringFlag{
		Name:      "issues-dir",
		Usage:     "directory receiving the conversations of failed tests, defaults to the temporary directory",
		TakesFile: true,
	},
}

func (f *stringFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type debugFlagType struct {
	cli.BoolFlag
}

var DebugFlag = &debugFlagType{
	cli.BoolFlag{
		Name:  "debug",
		Usage: "print debug messages to the console",
	},
}

func (f *debugFlagType) Fetch(context *cli.Context) bool {
	return context.Bool(f.Name)
}

var commonFlags = []cli.Flag{
	cpuProfileFlag,
}

var cpuProfileFlag = &cli.StringFlag{
	Name:      "cpuprofile",
	Usage:     "store CPU profile in the provided filename",
	TakesFile: true,
}

func AddCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, commonFlags...)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {

		if cpuprofileFilename := ctx.String(cpuProfileFlag.Name); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return action(ctx)
	}
	return command
}
