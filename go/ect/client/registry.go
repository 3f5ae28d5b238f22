// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package client launches the client instances tests are executed on.
package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/lifecycle"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
)

// Launcher provides client instances initialized with the genesis state of
// a pre-allocation group.
type Launcher interface {
	// Launch starts a client for the given group. The genesis is the content
	// of the group's pre-allocation file.
	Launch(ctx context.Context, id group.Identifier, genesis []byte) (lifecycle.Handle, error)
}

// LauncherFactory creates a launcher for the given client configuration.
type LauncherFactory func(config Config, log zerolog.Logger) (Launcher, error)

// This file provides a registry for launcher kinds. Implementations register
// their factory as part of their package initialization code. The kind of a
// client configuration selects the factory used for it.

// NewLauncher creates a launcher for the given configuration using the
// factory registered under the configured launcher kind (case-insensitive).
func NewLauncher(config Config, log zerolog.Logger) (Launcher, error) {
	factory := GetLauncherFactory(config.Launcher)
	if factory == nil {
		return nil, fmt.Errorf("launcher not found: %s", config.Launcher)
	}
	return factory(config, log)
}

// GetLauncherFactory performs a lookup for the given kind (case-insensitive)
// in the registry. The result is nil if no factory was registered under the
// given kind.
func GetLauncherFactory(kind string) LauncherFactory {
	launcherRegistryLock.Lock()
	defer launcherRegistryLock.Unlock()
	return launcherRegistry[strings.ToLower(kind)]
}

// GetAllRegisteredLaunchers obtains all registered launcher factories.
func GetAllRegisteredLaunchers() map[string]LauncherFactory {
	launcherRegistryLock.Lock()
	defer launcherRegistryLock.Unlock()
	return maps.Clone(launcherRegistry)
}

// RegisterLauncherFactory registers a new launcher kind. The kind is not
// case-sensitive. An error is returned if a factory was bound to the same
// kind before, or the factory is nil.
func RegisterLauncherFactory(kind string, factory LauncherFactory) error {
	key := strings.ToLower(kind)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	launcherRegistryLock.Lock()
	defer launcherRegistryLock.Unlock()
	if _, found := launcherRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	launcherRegistry[key] = factory
	return nil
}

// launcherRegistry is a global registry for launcher factories.
var launcherRegistry = map[string]LauncherFactory{}

// launcherRegistryLock to protect access to the registry.
var launcherRegistryLock sync.Mutex

func mustRegister(kind string, factory LauncherFactory) {
	if err := RegisterLauncherFactory(kind, factory); err != nil {
		panic(err)
	}
}

// handle is the lifecycle handle of a launched client.
type handle struct {
	engine engine.Client
	close  func(ctx context.Context) error
}

func (h *handle) Engine() engine.Client {
	return h.engine
}

func (h *handle) Close(ctx context.Context) error {
	h.engine.Close()
	if h.close == nil {
		return nil
	}
	return h.close(ctx)
}
