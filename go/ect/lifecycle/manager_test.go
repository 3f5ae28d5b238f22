// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"
)

// countingHandle is a Handle recording the number of Close calls.
type countingHandle struct {
	closes int
}

func (h *countingHandle) Engine() engine.Client          { return nil }
func (h *countingHandle) Close(ctx context.Context) error { h.closes++; return nil }

func TestManager_InstanceIsCreatedOnceAndTornDownByLastCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	handle := NewMockHandle(ctrl)
	manager := NewManager(zerolog.Nop(), nil)
	ctx := context.Background()

	created := 0
	factory := func() (Handle, error) {
		created++
		return handle, nil
	}

	const total = 3
	for i := 0; i < total; i++ {
		instance, err := manager.GetOrCreate("0xabc", total, factory)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if instance.Handle() != handle || instance.TestsTotal() != total {
			t.Fatalf("unexpected instance %+v", instance)
		}
		if i == total-1 {
			handle.EXPECT().Close(gomock.Any()).Return(nil)
		}
		if err := manager.OnTestComplete(ctx, "0xabc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("factory should have been called once, was called %d times", created)
	}
	if manager.Len() != 0 {
		t.Errorf("instance should have been removed")
	}
}

func TestManager_RepeatedCompletionIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	handle := NewMockHandle(ctrl)
	handle.EXPECT().Close(gomock.Any()).Return(nil).Times(1)
	manager := NewManager(zerolog.Nop(), nil)
	ctx := context.Background()

	if _, err := manager.GetOrCreate("0xabc", 1, func() (Handle, error) { return handle, nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := manager.OnTestComplete(ctx, "0xabc"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
}

func TestManager_CompletionOfUnknownGroupIsIgnored(t *testing.T) {
	manager := NewManager(zerolog.Nop(), nil)
	if err := manager.OnTestComplete(context.Background(), "unknown"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestManager_TestsTotalIsFixedAtCreation(t *testing.T) {
	ctrl := gomock.NewController(t)
	handle := NewMockHandle(ctrl)
	manager := NewManager(zerolog.Nop(), nil)
	factory := func() (Handle, error) { return handle, nil }

	if _, err := manager.GetOrCreate("0xabc", 2, factory); err != nil {
		t.Fatal(err)
	}
	instance, err := manager.GetOrCreate("0xabc", 5, factory)
	if err != nil {
		t.Fatal(err)
	}
	if instance.TestsTotal() != 2 {
		t.Errorf("tests total should be fixed at 2, got %d", instance.TestsTotal())
	}

	handle.EXPECT().Close(gomock.Any()).Return(nil)
	ctx := context.Background()
	manager.OnTestComplete(ctx, "0xabc")
	if completed, found := manager.TestsCompleted("0xabc"); !found || completed != 1 {
		t.Errorf("unexpected completion state %d (%t)", completed, found)
	}
	manager.OnTestComplete(ctx, "0xabc")
	if _, found := manager.TestsCompleted("0xabc"); found {
		t.Errorf("instance should have been torn down after the second test")
	}
}

func TestManager_FactoryErrorsAreReportedAndNothingIsInserted(t *testing.T) {
	manager := NewManager(zerolog.Nop(), nil)
	injected := errors.New("injected")
	_, err := manager.GetOrCreate("0xabc", 1, func() (Handle, error) { return nil, injected })
	if !errors.Is(err, injected) {
		t.Errorf("unexpected error: %v", err)
	}
	if manager.Len() != 0 {
		t.Errorf("no instance should have been registered")
	}
	if _, err := manager.GetOrCreate("0xabc", 1, func() (Handle, error) { return nil, nil }); err == nil {
		t.Errorf("a nil handle should be rejected")
	}
}

func TestManager_FailedCreationsCountTowardsGroupTotal(t *testing.T) {
	handle := &countingHandle{}
	manager := NewManager(zerolog.Nop(), nil)
	ctx := context.Background()

	calls := 0
	factory := func() (Handle, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("injected")
		}
		return handle, nil
	}

	const total = 3
	if _, err := manager.GetOrCreate("0xabc", total, factory); err == nil {
		t.Fatalf("expected the first creation to fail")
	}
	for i := 1; i < total; i++ {
		if _, err := manager.GetOrCreate("0xabc", total, factory); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if completed, found := manager.TestsCompleted("0xabc"); !found || completed != i {
			t.Fatalf("unexpected completion state %d, %t", completed, found)
		}
		if err := manager.OnTestComplete(ctx, "0xabc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if handle.closes != 1 {
		t.Errorf("instance should have been torn down by the last test, got %d closes", handle.closes)
	}
	if manager.Len() != 0 {
		t.Errorf("instance should have been removed")
	}
}

func TestManager_NonPositiveTotalsAreRejected(t *testing.T) {
	manager := NewManager(zerolog.Nop(), nil)
	factory := func() (Handle, error) {
		t.Fatalf("factory must not be called")
		return nil, nil
	}
	if _, err := manager.GetOrCreate("0xabc", 0, factory); !errors.Is(err, ErrInvalidTestsTotal) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestManager_TeardownErrorsAreReportedButInstanceIsRemoved(t *testing.T) {
	ctrl := gomock.NewController(t)
	handle := NewMockHandle(ctrl)
	observer := NewMockObserver(ctrl)
	injected := errors.New("injected")
	manager := NewManager(zerolog.Nop(), observer)

	gomock.InOrder(
		observer.EXPECT().InstanceCreated(group.Identifier("0xabc")),
		handle.EXPECT().Close(gomock.Any()).Return(injected),
		observer.EXPECT().InstanceTornDown(group.Identifier("0xabc"), gomock.Any()),
	)

	if _, err := manager.GetOrCreate("0xabc", 1, func() (Handle, error) { return handle, nil }); err != nil {
		t.Fatal(err)
	}
	if err := manager.OnTestComplete(context.Background(), "0xabc"); !errors.Is(err, injected) {
		t.Errorf("unexpected error: %v", err)
	}
	if manager.Len() != 0 {
		t.Errorf("instance should have been removed despite the teardown error")
	}
}

func TestManager_ShutdownTearsDownUnfinishedInstances(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := NewMockHandle(ctrl)
	b := NewMockHandle(ctrl)
	a.EXPECT().Close(gomock.Any()).Return(nil)
	b.EXPECT().Close(gomock.Any()).Return(errors.New("injected"))
	manager := NewManager(zerolog.Nop(), nil)

	manager.GetOrCreate("a", 5, func() (Handle, error) { return a, nil })
	manager.GetOrCreate("b", 5, func() (Handle, error) { return b, nil })
	if err := manager.Shutdown(context.Background()); err == nil {
		t.Errorf("expected the teardown error of b to be reported")
	}
	if manager.Len() != 0 {
		t.Errorf("all instances should have been removed")
	}
}

func TestManager_ConcurrentAccessCreatesSingleInstance(t *testing.T) {
	manager := NewManager(zerolog.Nop(), nil)
	handle := &countingHandle{}
	var mu sync.Mutex
	created := 0
	factory := func() (Handle, error) {
		mu.Lock()
		defer mu.Unlock()
		created++
		return handle, nil
	}

	const total = 50
	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			if _, err := manager.GetOrCreate("0xabc", total, factory); err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			manager.OnTestComplete(context.Background(), "0xabc")
		}()
	}
	wg.Wait()
	if created != 1 || handle.closes != 1 {
		t.Errorf("expected one creation and one teardown, got %d and %d", created, handle.closes)
	}
}

func TestManager_OneCreationAndTeardownPerGroup(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		manager := NewManager(zerolog.Nop(), nil)
		numGroups := rapid.IntRange(1, 5).Draw(t, "groups")
		totals := make([]int, numGroups)
		var schedule []int
		for i := range totals {
			totals[i] = rapid.IntRange(1, 10).Draw(t, "total")
			for j := 0; j < totals[i]; j++ {
				schedule = append(schedule, i)
			}
		}
		schedule = rapid.Permutation(schedule).Draw(t, "schedule")

		handles := make([]*countingHandle, numGroups)
		created := make([]int, numGroups)
		for step, g := range schedule {
			id := group.NewSubgroup("0xabc", g)
			_, err := manager.GetOrCreate(id, totals[g], func() (Handle, error) {
				created[g]++
				handles[g] = &countingHandle{}
				return handles[g], nil
			})
			if err != nil {
				t.Fatalf("step %d: unexpected error: %v", step, err)
			}
			manager.OnTestComplete(context.Background(), id)
		}
		for g := range totals {
			if created[g] != 1 {
				t.Fatalf("group %d: expected one creation, got %d", g, created[g])
			}
			if handles[g].closes != 1 {
				t.Fatalf("group %d: expected one teardown, got %d", g, handles[g].closes)
			}
		}
		if manager.Len() != 0 {
			t.Fatalf("all instances should have been torn down")
		}
	})
}
