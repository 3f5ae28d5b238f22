// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package protocol drives clients through the engine API conversation of a
// conformance test and checks their responses against the expectations of
// the test's fixture.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/exceptions"
	"github.com/Fantom-foundation/enginect/go/ect/fcu"
	"github.com/Fantom-foundation/enginect/go/ect/fixture"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/lifecycle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
)

// Mode selects the way payloads are handed to the client.
type Mode int

const (
	// Validation submits the fixture's payloads for validation.
	Validation Mode = iota
	// Production makes the client build the fixture's payloads itself.
	Production
)

func (m Mode) String() string {
	switch m {
	case Validation:
		return "validation"
	case Production:
		return "production"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the textual representation of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "validation":
		return Validation, nil
	case "production":
		return Production, nil
	}
	return 0, fmt.Errorf("unknown mode %q, supported are validation and production", s)
}

// DefaultBuildWait is the time granted to clients for building a payload.
const DefaultBuildWait = 500 * time.Millisecond

// Config parameterizes a driver.
type Config struct {
	Mode Mode
	// Strict turns rejection reasons not covered by the exception table into
	// failures. Otherwise they are reported as warnings.
	Strict bool
	// GenesisSync is the retry policy applied while the client is syncing
	// the genesis block.
	GenesisSync RetryPolicy
	// BuildWait is the time waited between requesting and retrieving a
	// payload in production mode. The engine API provides no signal for
	// the completion of a build.
	BuildWait time.Duration
	// TestTimeout bounds the duration of a single test if positive.
	TestTimeout time.Duration
	// Clock is used for all waiting. Defaults to the system clock.
	Clock clock.Clock
}

// Verdict is the result of executing a single test.
type Verdict struct {
	TestID     string
	File       string
	Identifier group.Identifier
	Passed     bool
	Failure    *Failure
	Warnings   []string
	Log        []Entry
	Duration   time.Duration
}

// Category returns the category of the failure, or an empty category for
// passed tests.
func (v *Verdict) Category() Category {
	if v.Failure == nil {
		return ""
	}
	return v.Failure.Category
}

// Driver executes tests on the client instances of a single worker. It is
// not safe for concurrent use.
type Driver struct {
	config  Config
	manager *lifecycle.Manager
	matcher *exceptions.Matcher
	tracker *fcu.Tracker
	log     zerolog.Logger
}

// NewDriver creates a driver running tests on instances of the given
// manager. The matcher classifies rejection reasons and may be nil, in
// which case all reasons are unmapped.
func NewDriver(
	config Config,
	manager *lifecycle.Manager,
	matcher *exceptions.Matcher,
	tracker *fcu.Tracker,
	log zerolog.Logger,
) *Driver {
	if config.Clock == nil {
		config.Clock = clock.NewDefaultClock()
	}
	if config.GenesisSync.Attempts == 0 {
		config.GenesisSync = DefaultRetryPolicy(config.Mode)
	}
	if tracker == nil {
		tracker = fcu.NewTracker(0)
	}
	return &Driver{
		config:  config,
		manager: manager,
		matcher: matcher,
		tracker: tracker,
		log:     log,
	}
}

// Execute runs the given test on the instance of its group, creating the
// instance using the factory if needed. testsTotal is the number of tests
// of the group executed by this driver. The completion of the test is
// reported to the lifecycle manager in any case, tearing down the instance
// after the group's last test.
func (d *Driver) Execute(
	ctx context.Context,
	execCtx group.ExecutionContext,
	test *fixture.TestCase,
	testsTotal int,
	factory lifecycle.Factory,
) *Verdict {
	start := d.config.Clock.Now()
	id := group.Resolve(execCtx, test.PreHash)
	log := d.log.With().Str("test", test.ID).Str("group", id.String()).Str("mode", d.config.Mode.String()).Logger()
	verdict := &Verdict{TestID: test.ID, File: test.File, Identifier: id}

	instance, err := d.manager.GetOrCreate(id, testsTotal, factory)
	if err != nil {
		verdict.Failure = &Failure{Category: ClientFailure, Step: "setup", Payload: -1, Err: err}
		verdict.Duration = d.config.Clock.Now().Sub(start)
		log.Error().Err(err).Msg("no client available")
		return verdict
	}
	defer func() {
		if err := d.manager.OnTestComplete(context.WithoutCancel(ctx), id); err != nil {
			log.Warn().Err(err).Msg("client teardown failed")
		}
	}()

	if d.config.TestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.TestTimeout)
		defer cancel()
	}

	d.tracker.IncrementTestCount(id)
	run := &run{
		driver:   d,
		ctx:      ctx,
		test:     test,
		finalize: d.tracker.ShouldPerformFCU(id),
		log:      log,
		client:   &recorder{engine: instance.Engine(), clock: d.config.Clock, payload: -1},
	}
	failure := run.execute()

	verdict.Passed = failure == nil
	verdict.Failure = failure
	verdict.Warnings = run.warnings
	verdict.Log = run.client.entries
	verdict.Duration = d.config.Clock.Now().Sub(start)
	if failure != nil {
		log.Warn().
			Str("category", string(failure.Category)).
			Str("step", failure.Step).
			Int("payload", failure.Payload).
			Err(failure).
			Msg("test failed")
	} else {
		log.Debug().Dur("duration", verdict.Duration).Int("warnings", len(run.warnings)).Msg("test passed")
	}
	return verdict
}

// run is the state of a single test execution.
type run struct {
	driver   *Driver
	ctx      context.Context
	test     *fixture.TestCase
	client   *recorder
	finalize bool
	warnings []string
	log      zerolog.Logger
}

func (r *run) execute() *Failure {
	if failure := r.syncGenesis(); failure != nil {
		return failure
	}
	for i, payload := range r.test.Payloads {
		r.client.payload = i
		var failure *Failure
		if r.driver.config.Mode == Production {
			failure = r.producePayload(i, payload)
		} else {
			failure = r.validatePayload(i, payload)
		}
		if failure != nil {
			return failure
		}
	}
	return nil
}

// fail creates a failure of the given category. Failures caused by the
// cancellation of the test's context are reported as aborted.
func (r *run) fail(category Category, step string, err error, format string, args ...any) *Failure {
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		category = Aborted
		if err == nil || !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
	}
	return &Failure{
		Category: category,
		Step:     step,
		Payload:  r.client.payload,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	}
}

func (r *run) warn(format string, args ...any) {
	warning := fmt.Sprintf(format, args...)
	r.log.Warn().Int("payload", r.client.payload).Msg(warning)
	r.warnings = append(r.warnings, warning)
}

// syncGenesis makes the client adopt the genesis block as its head and
// checks that the client's genesis block is the expected one.
func (r *run) syncGenesis() *Failure {
	const step = "genesis handshake"
	genesis := r.test.Genesis.Hash
	version := r.test.ForkchoiceUpdatedVersion()
	policy := r.driver.config.GenesisSync
	attempts := policy.MaxAttempts()

	for attempt := 0; ; attempt++ {
		response, err := r.client.forkchoiceUpdated(r.ctx, version, genesis, nil)
		if err != nil {
			return r.fail(HandshakeFailure, step, err, "forkchoice update to genesis %v failed", genesis)
		}
		status := response.PayloadStatus.Status
		if status == engine.StatusValid {
			break
		}
		if status != engine.StatusSyncing {
			return r.fail(HandshakeFailure, step, nil, "unexpected status %s for genesis %v", status, genesis)
		}
		if attempt+1 >= attempts {
			return r.fail(HandshakeFailure, step, nil, "client still syncing after %d attempts", attempts)
		}
		delay := policy.DelayFor(attempt)
		r.log.Debug().Int("attempt", attempt+1).Dur("delay", delay).Msg("client syncing genesis, retrying")
		if err := sleep(r.ctx, r.driver.config.Clock, delay); err != nil {
			return r.fail(HandshakeFailure, step, err, "interrupted while waiting for genesis sync")
		}
	}

	block, err := r.client.blockByNumber(r.ctx, "0x0")
	if err != nil {
		return r.fail(GenesisMismatch, "genesis check", err, "failed to fetch genesis block")
	}
	if block.Hash != genesis {
		return r.fail(GenesisMismatch, "genesis check", nil, "client genesis %v, expected %v", block.Hash, genesis)
	}
	return nil
}

// finalizeHead makes the given block the head of the client's chain.
func (r *run) finalizeHead(step string, version int, head common.Hash) *Failure {
	response, err := r.client.forkchoiceUpdated(r.ctx, version, head, nil)
	if err != nil {
		return r.fail(UnexpectedStatus, step, err, "forkchoice update to %v failed", head)
	}
	if status := response.PayloadStatus.Status; status != engine.StatusValid {
		return r.fail(UnexpectedStatus, step, nil, "forkchoice update to %v returned %s", head, status)
	}
	return nil
}
