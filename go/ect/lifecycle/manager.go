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
	"fmt"
	"sort"
	"sync"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/rs/zerolog"
)

//go:generate mockgen -source manager.go -destination manager_mock.go -package lifecycle

// Handle is a running client a group of tests is executed on.
type Handle interface {
	// Engine returns the protocol connection to the client.
	Engine() engine.Client
	// Close stops the client and releases all of its resources.
	Close(ctx context.Context) error
}

// Factory creates the client handle for a new instance.
type Factory func() (Handle, error)

// Observer is notified about instances being created and torn down.
type Observer interface {
	InstanceCreated(id group.Identifier)
	InstanceTornDown(id group.Identifier, err error)
}

// Instance is a client bound to a group identifier. It is shared by all
// tests resolving to this identifier and is torn down once the last of them
// completed.
type Instance struct {
	id             group.Identifier
	handle         Handle
	testsTotal     int
	testsCompleted int
}

// Identifier returns the group identifier the instance is bound to.
func (i *Instance) Identifier() group.Identifier {
	return i.id
}

// Handle returns the client of this instance.
func (i *Instance) Handle() Handle {
	return i.handle
}

// Engine is a shortcut for Handle().Engine().
func (i *Instance) Engine() engine.Client {
	return i.handle.Engine()
}

// TestsTotal returns the number of tests the instance was created for.
func (i *Instance) TestsTotal() int {
	return i.testsTotal
}

// Manager owns the client instances of a single worker. For each group
// identifier there is at most one live instance at any time. Instances are
// created lazily by GetOrCreate and torn down by the OnTestComplete call
// bringing the number of completed tests to the total number of tests of
// the group. Tests whose instance could not be created count as completed
// tests of the instance created later on for their group.
type Manager struct {
	instances map[group.Identifier]*Instance
	failed    map[group.Identifier]int
	mu        sync.Mutex
	observer  Observer
	log       zerolog.Logger
}

// NewManager creates an empty manager. The observer may be nil.
func NewManager(log zerolog.Logger, observer Observer) *Manager {
	return &Manager{
		instances: map[group.Identifier]*Instance{},
		failed:    map[group.Identifier]int{},
		observer:  observer,
		log:       log,
	}
}

// ErrInvalidTestsTotal is returned when creating an instance for less than
// one test.
const ErrInvalidTestsTotal = ConstError("number of tests must be positive")

// ConstError is an error type that can be used to define error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// GetOrCreate returns the live instance of the given identifier, creating
// it using the factory if there is none. The number of tests is fixed when
// the instance is created; values passed on later calls are ignored. A
// failed creation is accounted as a completed test of the group.
func (m *Manager) GetOrCreate(id group.Identifier, testsTotal int, factory Factory) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instance, found := m.instances[id]; found {
		if instance.testsTotal != testsTotal {
			m.log.Debug().
				Str("group", id.String()).
				Int("tests_total", instance.testsTotal).
				Int("ignored", testsTotal).
				Msg("ignoring differing test total for existing instance")
		}
		return instance, nil
	}

	if testsTotal < 1 {
		return nil, fmt.Errorf("%w: %d for group %v", ErrInvalidTestsTotal, testsTotal, id)
	}
	handle, err := factory()
	if err == nil && handle == nil {
		err = fmt.Errorf("factory returned no client")
	}
	if err != nil {
		m.failed[id]++
		return nil, fmt.Errorf("failed to create client for group %v: %w", id, err)
	}
	instance := &Instance{id: id, handle: handle, testsTotal: testsTotal, testsCompleted: m.failed[id]}
	delete(m.failed, id)
	m.instances[id] = instance
	m.log.Info().
		Str("group", id.String()).
		Int("tests_total", testsTotal).
		Int("tests_failed_before", instance.testsCompleted).
		Msg("client instance created")
	if m.observer != nil {
		m.observer.InstanceCreated(id)
	}
	return instance, nil
}

// OnTestComplete registers the completion of a test of the given group. If
// this was the last test of the group, the instance is removed and torn
// down. Calls for identifiers without a live instance are ignored. Errors
// of the teardown are returned; the instance is removed regardless.
func (m *Manager) OnTestComplete(ctx context.Context, id group.Identifier) error {
	instance := m.complete(id)
	if instance == nil {
		return nil
	}
	return m.teardown(ctx, instance)
}

// complete increments the completion counter and returns the instance if it
// is due for teardown.
func (m *Manager) complete(id group.Identifier) *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	instance, found := m.instances[id]
	if !found {
		return nil
	}
	instance.testsCompleted++
	if instance.testsCompleted < instance.testsTotal {
		return nil
	}
	delete(m.instances, id)
	return instance
}

func (m *Manager) teardown(ctx context.Context, instance *Instance) error {
	err := instance.handle.Close(ctx)
	if err != nil {
		err = fmt.Errorf("failed to tear down client of group %v: %w", instance.id, err)
		m.log.Error().Err(err).Str("group", instance.id.String()).Msg("teardown failed")
	} else {
		m.log.Info().
			Str("group", instance.id.String()).
			Int("tests_completed", instance.testsCompleted).
			Msg("client instance torn down")
	}
	if m.observer != nil {
		m.observer.InstanceTornDown(instance.id, err)
	}
	return err
}

// TestsCompleted returns the number of completed tests of the live instance
// of the given group. The second result is false if there is none.
func (m *Manager) TestsCompleted(id group.Identifier) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	instance, found := m.instances[id]
	if !found {
		return 0, false
	}
	return instance.testsCompleted, true
}

// Len returns the number of live instances.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// Shutdown tears down all live instances, regardless of their number of
// completed tests. It is intended for aborted runs.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, instance := range m.instances {
		instances = append(instances, instance)
	}
	m.instances = map[group.Identifier]*Instance{}
	m.failed = map[group.Identifier]int{}
	m.mu.Unlock()

	sort.Slice(instances, func(i, j int) bool { return instances[i].id < instances[j].id })
	var errs []error
	for _, instance := range instances {
		m.log.Warn().
			Str("group", instance.id.String()).
			Int("tests_completed", instance.testsCompleted).
			Int("tests_total", instance.testsTotal).
			Msg("shutting down unfinished client instance")
		if err := m.teardown(ctx, instance); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
