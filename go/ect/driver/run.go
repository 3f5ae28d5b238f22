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
	"os"
	"os/signal"
	"syscall"

	"github.com/Fantom-foundation/enginect/go/ect/client"
	cliUtils "github.com/Fantom-foundation/enginect/go/ect/driver/cli"
	"github.com/Fantom-foundation/enginect/go/ect/exceptions"
	"github.com/Fantom-foundation/enginect/go/ect/logging"
	"github.com/Fantom-foundation/enginect/go/ect/metrics"
	"github.com/Fantom-foundation/enginect/go/ect/protocol"
	"github.com/Fantom-foundation/enginect/go/ect/session"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var RunCmd = cliUtils.AddCommonFlags(cli.Command{
	Action: doRun,
	Name:   "run",
	Usage:  "Run Engine API conformance tests on a client implementation",
	Flags: append([]cli.Flag{
		cliUtils.FixturesFlag,
		cliUtils.ClientFlag,
		cliUtils.ModeFlag,
		cliUtils.FilterFlag,
		cliUtils.JobsFlag,
		cliUtils.MaxGroupSizeFlag,
		cliUtils.FCUFrequencyFlag,
		cliUtils.StrictExceptionsFlag,
		cliUtils.BuildWaitFlag,
		cliUtils.TestTimeoutFlag,
		cliUtils.SeedFlag,
		cliUtils.MaxErrorsFlag,
		cliUtils.MetricsAddrFlag,
		cliUtils.LogDirFlag,
		cliUtils.IssuesDirFlag,
		cliUtils.DebugFlag,
	}, cliUtils.RetryFlags.Flags()...),
})

func doRun(context *cli.Context) error {
	log, logFile, err := logging.NewWithFile(
		cliUtils.DebugFlag.Fetch(context),
		cliUtils.LogDirFlag.Fetch(context),
		nil,
	)
	if err != nil {
		return err
	}
	defer logFile.Close()

	mode, err := cliUtils.ModeFlag.Fetch(context)
	if err != nil {
		return err
	}
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

	clientConfig, err := client.LoadConfig(cliUtils.ClientFlag.Fetch(context))
	if err != nil {
		return err
	}
	launcher, err := client.NewLauncher(clientConfig, log)
	if err != nil {
		return err
	}
	matcher, strict, err := loadExceptions(clientConfig, context)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	if addr := cliUtils.MetricsAddrFlag.Fetch(context); addr != "" {
		go func() {
			if err := collector.Serve(ctx, addr, log); err != nil {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	seed := cliUtils.SeedFlag.Fetch(context)
	fmt.Printf("Starting %s tests of client %s with seed %d ...\n", mode, clientConfig.Name, seed)

	res, err := session.Run(ctx, session.Config{
		Tests:    tests,
		PreAlloc: source,
		Launcher: launcher,
		Matcher:  matcher,
		Driver: protocol.Config{
			Mode:        mode,
			Strict:      strict,
			GenesisSync: cliUtils.RetryFlags.Fetch(context, mode),
			BuildWait:   cliUtils.BuildWaitFlag.Fetch(context),
			TestTimeout: cliUtils.TestTimeoutFlag.Fetch(context),
		},
		Jobs:         cliUtils.JobsFlag.Fetch(context),
		MaxGroupSize: cliUtils.MaxGroupSizeFlag.Fetch(context),
		FCUFrequency: cliUtils.FCUFrequencyFlag.Fetch(context),
		Seed:         seed,
		MaxErrors:    cliUtils.MaxErrorsFlag.Fetch(context),
		Metrics:      collector,
		Output:       os.Stdout,
		Log:          log,
	})
	if err != nil {
		return err
	}
	return report(res, cliUtils.IssuesDirFlag.Fetch(context), log)
}

// loadExceptions builds the exception matcher of the client. The strict
// mode of the client's table is overruled by an explicitly set flag.
func loadExceptions(config client.Config, context *cli.Context) (*exceptions.Matcher, bool, error) {
	table, err := config.ExceptionTable()
	if err != nil {
		return nil, false, err
	}
	matcher, err := table.Matcher()
	if err != nil {
		return nil, false, err
	}
	strict := table.Strict
	if value, set := cliUtils.StrictExceptionsFlag.Fetch(context); set {
		strict = value
	}
	return matcher, strict, nil
}

// report prints the summary of a session and exports its failures.
func report(res *session.Result, issuesDir string, log zerolog.Logger) error {
	res.Summary.Print(os.Stdout)
	if res.Aborted {
		fmt.Printf("Testing aborted, %d tests were not executed\n", res.Summary.Skipped)
	}

	if res.Summary.Failed == 0 {
		if res.Aborted {
			return fmt.Errorf("testing aborted")
		}
		fmt.Printf("All tests passed successfully!\n")
		return nil
	}

	dir, err := res.Collector.ExportFailures(os.Stdout, issuesDir)
	if err != nil {
		log.Error().Err(err).Msg("failed to export failed conversations")
	} else {
		log.Info().Str("dir", dir).Msg("failed conversations exported")
	}
	return fmt.Errorf("failed to pass %d test cases", res.Summary.Failed)
}
