// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package session runs a set of test cases against client instances. Tests
// are partitioned into groups sharing a pre-allocation, groups are spread
// over parallel workers, and each worker executes its tests sequentially
// with its own instance lifecycle manager.
package session

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/client"
	"github.com/Fantom-foundation/enginect/go/ect/exceptions"
	"github.com/Fantom-foundation/enginect/go/ect/fcu"
	"github.com/Fantom-foundation/enginect/go/ect/fixture"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/lifecycle"
	"github.com/Fantom-foundation/enginect/go/ect/metrics"
	"github.com/Fantom-foundation/enginect/go/ect/protocol"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PreAllocSource provides the genesis configuration of a group.
type PreAllocSource interface {
	PreAlloc(hash string) ([]byte, error)
}

var _ PreAllocSource = (*fixture.Source)(nil)

// Config configures a session.
type Config struct {
	Tests    []*fixture.TestCase
	PreAlloc PreAllocSource
	Launcher client.Launcher
	// Matcher classifies rejection reasons, may be nil.
	Matcher *exceptions.Matcher
	Driver  protocol.Config

	// Jobs is the number of parallel workers, at least 1.
	Jobs int
	// MaxGroupSize splits larger groups into subgroups; 0 disables splitting.
	MaxGroupSize int
	// FCUFrequency finalizes the head after every n-th test of a group.
	FCUFrequency int
	// Seed shuffles the execution order within workers if not 0.
	Seed uint64
	// MaxErrors aborts the session after the given number of failed tests;
	// values below 1 never abort.
	MaxErrors int

	// Metrics is optional.
	Metrics *metrics.Metrics
	// Output receives progress reports, none are printed if nil.
	Output           io.Writer
	ProgressInterval time.Duration
	Clock            clock.Clock
	Log              zerolog.Logger
}

// Result is the outcome of a session.
type Result struct {
	Summary   Summary
	Collector *Collector
	// Aborted is set if the session stopped before executing all tests.
	Aborted bool
}

// Run executes all tests of the configuration. Test failures are reported in
// the result; an error is only returned if the session could not be run.
func Run(ctx context.Context, config Config) (*Result, error) {
	if config.PreAlloc == nil || config.Launcher == nil {
		return nil, fmt.Errorf("session requires a pre-alloc source and a client launcher")
	}
	if config.Clock == nil {
		config.Clock = clock.NewDefaultClock()
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = DefaultProgressInterval
	}
	maxErrors := config.MaxErrors
	if maxErrors <= 0 {
		maxErrors = math.MaxInt
	}

	groups := Groups(config.Tests, config.MaxGroupSize)
	plans := Distribute(groups, config.Jobs, config.Seed)
	config.Log.Info().
		Int("tests", len(config.Tests)).
		Int("groups", len(groups)).
		Int("jobs", len(plans)).
		Uint64("seed", config.Seed).
		Str("mode", config.Driver.Mode.String()).
		Msg("starting session")

	collector := &Collector{}
	var abort atomic.Bool
	start := config.Clock.Now()

	if config.Output != nil {
		stop := startProgressPrinter(
			config.Output, config.Clock, config.ProgressInterval, len(config.Tests),
			collector.NumVerdicts, collector.NumFailures,
		)
		defer stop()
	}

	workers, workerCtx := errgroup.WithContext(ctx)
	for _, plan := range plans {
		if len(plan.Tests) == 0 {
			continue
		}
		w := &worker{
			plan:      plan,
			config:    &config,
			collector: collector,
			abort:     &abort,
			maxErrors: maxErrors,
			log:       config.Log.With().Int("worker", plan.Worker).Logger(),
		}
		workers.Go(func() error {
			return w.run(workerCtx)
		})
	}
	if err := workers.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Summary:   collector.Summary(len(config.Tests)),
		Collector: collector,
	}
	res.Summary.Duration = config.Clock.Now().Sub(start)
	res.Aborted = res.Summary.Skipped > 0
	config.Log.Info().
		Int("passed", res.Summary.Passed).
		Int("failed", res.Summary.Failed).
		Int("skipped", res.Summary.Skipped).
		Dur("duration", res.Summary.Duration).
		Msg("session finished")
	return res, nil
}

// worker executes the tests of a single plan sequentially.
type worker struct {
	plan      *Plan
	config    *Config
	collector *Collector
	abort     *atomic.Bool
	maxErrors int
	log       zerolog.Logger
}

func (w *worker) run(ctx context.Context) error {
	var observer lifecycle.Observer
	if w.config.Metrics != nil {
		observer = w.config.Metrics
	}
	manager := lifecycle.NewManager(w.log, observer)
	defer func() {
		// Instances of groups cut short by an abort are still running.
		if err := manager.Shutdown(context.WithoutCancel(ctx)); err != nil {
			w.log.Warn().Err(err).Msg("failed to shut down remaining clients")
		}
	}()

	driver := protocol.NewDriver(
		w.config.Driver,
		manager,
		w.config.Matcher,
		fcu.NewTracker(w.config.FCUFrequency),
		w.log,
	)

	for _, assignment := range w.plan.Tests {
		if ctx.Err() != nil || w.abort.Load() {
			break
		}
		execCtx := group.Context{ID: assignment.Test.ID, Group: assignment.Identifier.String()}
		verdict := driver.Execute(
			ctx,
			execCtx,
			assignment.Test,
			w.plan.Totals[assignment.Identifier],
			w.factory(ctx, assignment),
		)
		w.collector.Add(verdict)
		if w.config.Metrics != nil {
			w.config.Metrics.ObserveVerdict(verdict)
		}
		if w.collector.NumFailures() >= w.maxErrors && w.abort.CompareAndSwap(false, true) {
			w.log.Warn().Int("failures", w.maxErrors).Msg("maximum number of failures reached, aborting")
		}
	}
	return nil
}

func (w *worker) factory(ctx context.Context, assignment Assignment) lifecycle.Factory {
	return func() (lifecycle.Handle, error) {
		genesis, err := w.config.PreAlloc.PreAlloc(assignment.Test.PreHash)
		if err != nil {
			return nil, err
		}
		return w.config.Launcher.Launch(ctx, assignment.Identifier, genesis)
	}
}
