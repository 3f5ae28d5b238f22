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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/fixture"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/lifecycle"
	"github.com/Fantom-foundation/enginect/go/ect/metrics"
	"github.com/Fantom-foundation/enginect/go/ect/protocol"
	beacon "github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"pgregory.net/rapid"
)

var (
	goodGenesis = common.Hash{1}
	badGenesis  = common.Hash{2}
)

func newTests(hash string, n int, genesis common.Hash) []*fixture.TestCase {
	res := make([]*fixture.TestCase, n)
	for i := range res {
		res[i] = &fixture.TestCase{
			ID:      fmt.Sprintf("%s/test_%03d", hash, i),
			PreHash: hash,
			Genesis: fixture.GenesisHeader{Hash: genesis},
		}
	}
	return res
}

// fakeEngine accepts everything and reports goodGenesis as its genesis.
type fakeEngine struct{}

func (fakeEngine) NewPayload(context.Context, int, *engine.ExecutionPayload, []common.Hash, *common.Hash, []hexutil.Bytes) (beacon.PayloadStatusV1, error) {
	return beacon.PayloadStatusV1{Status: engine.StatusValid}, nil
}

func (fakeEngine) ForkchoiceUpdated(context.Context, int, beacon.ForkchoiceStateV1, *engine.PayloadAttributes) (beacon.ForkChoiceResponse, error) {
	return beacon.ForkChoiceResponse{PayloadStatus: beacon.PayloadStatusV1{Status: engine.StatusValid}}, nil
}

func (fakeEngine) GetPayload(context.Context, int, beacon.PayloadID) (*engine.BuiltPayload, error) {
	return nil, errors.New("not supported")
}

func (fakeEngine) SendRawTransaction(context.Context, hexutil.Bytes) (common.Hash, error) {
	return common.Hash{}, errors.New("not supported")
}

func (fakeEngine) BlockByNumber(context.Context, string) (*engine.Block, error) {
	return &engine.Block{Hash: goodGenesis}, nil
}

func (fakeEngine) Close() {}

type fakeHandle struct {
	launcher *fakeLauncher
}

func (h *fakeHandle) Engine() engine.Client { return fakeEngine{} }

func (h *fakeHandle) Close(context.Context) error {
	h.launcher.mu.Lock()
	defer h.launcher.mu.Unlock()
	h.launcher.live--
	return nil
}

// fakeLauncher counts launched and running instances.
type fakeLauncher struct {
	mu       sync.Mutex
	launched map[group.Identifier]int
	genesis  map[group.Identifier]string
	live     int
	fail     bool
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		launched: map[group.Identifier]int{},
		genesis:  map[group.Identifier]string{},
	}
}

func (l *fakeLauncher) Launch(_ context.Context, id group.Identifier, genesis []byte) (lifecycle.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return nil, errors.New("injected launch failure")
	}
	l.launched[id]++
	l.genesis[id] = string(genesis)
	l.live++
	return &fakeHandle{launcher: l}, nil
}

type fakePreAlloc struct{}

func (fakePreAlloc) PreAlloc(hash string) ([]byte, error) {
	return []byte(`{"hash":"` + hash + `"}`), nil
}

func runSession(t *testing.T, launcher *fakeLauncher, tests []*fixture.TestCase, modify func(*Config)) *Result {
	t.Helper()
	config := Config{
		Tests:    tests,
		PreAlloc: fakePreAlloc{},
		Launcher: launcher,
		Jobs:     2,
		Log:      zerolog.Nop(),
	}
	if modify != nil {
		modify(&config)
	}
	res, err := Run(context.Background(), config)
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if launcher.live != 0 {
		t.Errorf("%d client instances still running", launcher.live)
	}
	return res
}

func TestGroups_LargeGroupsAreSplitIntoSubgroups(t *testing.T) {
	tests := append(newTests("0xaa", 7, goodGenesis), newTests("0xbb", 3, goodGenesis)...)
	groups := Groups(tests, 3)

	want := map[group.Identifier]int{"0xaa:0": 3, "0xaa:1": 3, "0xaa:2": 1, "0xbb": 3}
	if len(groups) != len(want) {
		t.Fatalf("unexpected number of groups %d", len(groups))
	}
	for _, g := range groups {
		if want[g.Identifier] != len(g.Tests) {
			t.Errorf("group %v has %d tests, wanted %d", g.Identifier, len(g.Tests), want[g.Identifier])
		}
		for _, test := range g.Tests {
			if test.PreHash != g.Identifier.BaseHash() {
				t.Errorf("test %s in foreign group %v", test.ID, g.Identifier)
			}
		}
	}
}

func TestGroups_SplittingCanBeDisabled(t *testing.T) {
	groups := Groups(newTests("0xaa", 10, goodGenesis), 0)
	if len(groups) != 1 || groups[0].Identifier != "0xaa" || len(groups[0].Tests) != 10 {
		t.Errorf("unexpected groups %v", groups)
	}
}

func TestDistribute_AssignsLargestGroupsToLeastLoadedWorker(t *testing.T) {
	groups := []Group{
		{Identifier: "a", Tests: newTests("a", 5, goodGenesis)},
		{Identifier: "b", Tests: newTests("b", 3, goodGenesis)},
		{Identifier: "c", Tests: newTests("c", 2, goodGenesis)},
		{Identifier: "d", Tests: newTests("d", 1, goodGenesis)},
	}
	plans := Distribute(groups, 2, 0)
	if len(plans) != 2 {
		t.Fatalf("unexpected number of plans %d", len(plans))
	}
	if len(plans[0].Tests) != 5 || plans[0].Totals["a"] != 5 {
		t.Errorf("unexpected first plan %v", plans[0].Totals)
	}
	if len(plans[1].Tests) != 6 || plans[1].Totals["b"] != 3 || plans[1].Totals["c"] != 2 || plans[1].Totals["d"] != 1 {
		t.Errorf("unexpected second plan %v", plans[1].Totals)
	}
}

func TestDistribute_SeedShufflesReproducibly(t *testing.T) {
	groups := Groups(append(newTests("a", 20, goodGenesis), newTests("b", 20, goodGenesis)...), 0)
	order := func(seed uint64) []string {
		var res []string
		for _, assignment := range Distribute(groups, 1, seed)[0].Tests {
			res = append(res, assignment.Test.ID)
		}
		return res
	}
	unshuffled := strings.Join(order(0), ",")
	first := strings.Join(order(42), ",")
	if first != strings.Join(order(42), ",") {
		t.Errorf("same seed produced different orders")
	}
	if first == unshuffled {
		t.Errorf("seed did not change the order")
	}
}

func TestDistribute_EveryTestIsAssignedOnceAndGroupsStayTogether(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var tests []*fixture.TestCase
		numHashes := rapid.IntRange(1, 5).Draw(t, "hashes")
		for i := 0; i < numHashes; i++ {
			tests = append(tests, newTests(fmt.Sprintf("0x%02x", i), rapid.IntRange(1, 12).Draw(t, "size"), goodGenesis)...)
		}
		maxSize := rapid.IntRange(0, 6).Draw(t, "maxSize")
		jobs := rapid.IntRange(1, 4).Draw(t, "jobs")
		seed := rapid.Uint64().Draw(t, "seed")

		groups := Groups(tests, maxSize)
		plans := Distribute(groups, jobs, seed)

		seen := map[string]bool{}
		owner := map[group.Identifier]int{}
		for _, plan := range plans {
			counts := map[group.Identifier]int{}
			var previous group.Identifier
			finished := map[group.Identifier]bool{}
			for _, assignment := range plan.Tests {
				if seen[assignment.Test.ID] {
					t.Fatalf("test %s assigned twice", assignment.Test.ID)
				}
				seen[assignment.Test.ID] = true
				if worker, found := owner[assignment.Identifier]; found && worker != plan.Worker {
					t.Fatalf("group %v split across workers", assignment.Identifier)
				}
				owner[assignment.Identifier] = plan.Worker
				if assignment.Identifier != previous {
					if finished[assignment.Identifier] {
						t.Fatalf("tests of group %v are not contiguous", assignment.Identifier)
					}
					finished[previous] = true
					previous = assignment.Identifier
				}
				counts[assignment.Identifier]++
			}
			for id, count := range counts {
				if plan.Totals[id] != count {
					t.Fatalf("total of group %v is %d, executed %d", id, plan.Totals[id], count)
				}
			}
		}
		if len(seen) != len(tests) {
			t.Fatalf("assigned %d of %d tests", len(seen), len(tests))
		}
	})
}

func TestRun_OneInstanceIsLaunchedPerSubgroup(t *testing.T) {
	launcher := newFakeLauncher()
	tests := append(newTests("0xaa", 10, goodGenesis), newTests("0xbb", 2, goodGenesis)...)
	m := metrics.New()
	res := runSession(t, launcher, tests, func(c *Config) {
		c.MaxGroupSize = 3
		c.Jobs = 3
		c.Metrics = m
	})

	if res.Summary.Passed != 12 || res.Summary.Failed != 0 || res.Aborted {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
	want := map[group.Identifier]int{"0xaa:0": 1, "0xaa:1": 1, "0xaa:2": 1, "0xaa:3": 1, "0xbb": 1}
	if len(launcher.launched) != len(want) {
		t.Errorf("unexpected instances %v", launcher.launched)
	}
	for id, count := range want {
		if launcher.launched[id] != count {
			t.Errorf("group %v launched %d times", id, launcher.launched[id])
		}
	}
	if got := launcher.genesis["0xaa:2"]; got != `{"hash":"0xaa"}` {
		t.Errorf("subgroup launched with wrong genesis %q", got)
	}
	for _, verdict := range res.Collector.Verdicts() {
		if verdict.Identifier.BaseHash() != strings.Split(verdict.TestID, "/")[0] {
			t.Errorf("test %s executed in group %v", verdict.TestID, verdict.Identifier)
		}
	}
}

func TestRun_FailuresAreCollected(t *testing.T) {
	launcher := newFakeLauncher()
	tests := append(newTests("0xaa", 3, goodGenesis), newTests("0xbb", 2, badGenesis)...)
	res := runSession(t, launcher, tests, nil)

	if res.Summary.Passed != 3 || res.Summary.Failed != 2 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
	if res.Summary.Categories[protocol.GenesisMismatch] != 2 {
		t.Errorf("unexpected categories %v", res.Summary.Categories)
	}
	for _, verdict := range res.Collector.Failures() {
		if !strings.HasPrefix(verdict.TestID, "0xbb/") {
			t.Errorf("unexpected failure of %s", verdict.TestID)
		}
	}
}

func TestRun_SessionIsAbortedAfterMaxErrors(t *testing.T) {
	launcher := newFakeLauncher()
	res := runSession(t, launcher, newTests("0xbb", 10, badGenesis), func(c *Config) {
		c.Jobs = 1
		c.MaxErrors = 3
	})
	if res.Summary.Failed != 3 || res.Summary.Skipped != 7 || !res.Aborted {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
}

func TestRun_LaunchFailuresFailTheTestsOfTheGroup(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.fail = true
	res := runSession(t, launcher, newTests("0xaa", 4, goodGenesis), nil)
	if res.Summary.Failed != 4 || res.Summary.Categories[protocol.ClientFailure] != 4 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
}

func TestRun_CanceledSessionSkipsRemainingTests(t *testing.T) {
	launcher := newFakeLauncher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, Config{
		Tests:    newTests("0xaa", 4, goodGenesis),
		PreAlloc: fakePreAlloc{},
		Launcher: launcher,
		Log:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Skipped != 4 || !res.Aborted || len(launcher.launched) != 0 {
		t.Errorf("unexpected result %+v", res.Summary)
	}
}

func TestRun_MissingLauncherIsAnError(t *testing.T) {
	if _, err := Run(context.Background(), Config{PreAlloc: fakePreAlloc{}}); err == nil {
		t.Errorf("expected an error")
	}
}

func TestCollector_FailuresAreExported(t *testing.T) {
	collector := &Collector{}
	collector.Add(&protocol.Verdict{TestID: "ok", Passed: true})
	collector.Add(&protocol.Verdict{
		TestID:     "dir/failing test",
		Identifier: "0xaa:1",
		Failure:    &protocol.Failure{Category: protocol.UnexpectedStatus, Step: "new payload", Payload: 2, Message: "boom"},
		Log:        []protocol.Entry{{Method: "engine_newPayloadV3", Payload: 2}},
	})

	var out bytes.Buffer
	dir, err := collector.ExportFailures(&out, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("unexpected exported files %v, %v", files, err)
	}
	if !strings.HasSuffix(files[0], "dir_failing_test.json") {
		t.Errorf("unexpected file name %s", files[0])
	}
	content, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var record struct {
		Test         string
		Group        string
		Category     string
		Payload      int
		Conversation []protocol.Entry
	}
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatal(err)
	}
	if record.Test != "dir/failing test" || record.Group != "0xaa:1" || record.Category != string(protocol.UnexpectedStatus) ||
		record.Payload != 2 || len(record.Conversation) != 1 {
		t.Errorf("unexpected record %+v", record)
	}
	if !strings.Contains(out.String(), "dir/failing test") {
		t.Errorf("failure not printed: %s", out.String())
	}
}

func TestCollector_NothingIsExportedWithoutFailures(t *testing.T) {
	collector := &Collector{}
	collector.Add(&protocol.Verdict{TestID: "ok", Passed: true})
	dir, err := collector.ExportFailures(&bytes.Buffer{}, t.TempDir())
	if err != nil || dir != "" {
		t.Errorf("unexpected export %q, %v", dir, err)
	}
}

func TestSummary_PrintListsCategories(t *testing.T) {
	summary := Summary{
		Total:      5,
		Passed:     2,
		Failed:     2,
		Skipped:    1,
		Categories: map[protocol.Category]int{protocol.UnexpectedStatus: 1, protocol.BuildFailure: 1},
	}
	var out bytes.Buffer
	summary.Print(&out)
	for _, want := range []string{"Executed 4 of 5", "skipped:  1", string(protocol.UnexpectedStatus), string(protocol.BuildFailure)} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("missing %q in %s", want, out.String())
		}
	}
}
