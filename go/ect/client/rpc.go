// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/lifecycle"
	"github.com/rs/zerolog"
)

func init() {
	mustRegister("rpc", newRPCLauncher)
}

// dialFunc connects to the engine API of a client.
type dialFunc func(ctx context.Context, url string, secret [32]byte, timeout time.Duration) (engine.Client, error)

// rpcLauncher attaches to an externally managed client. The client must
// have been started with the genesis of the groups executed on it; the
// launcher only opens a new connection per instance.
type rpcLauncher struct {
	url     string
	secret  [32]byte
	timeout time.Duration
	dial    dialFunc
	log     zerolog.Logger
}

func newRPCLauncher(config Config, log zerolog.Logger) (Launcher, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("client %s: rpc launcher requires a url", config.Name)
	}
	secret, found, err := config.Secret()
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", config.Name, err)
	}
	if !found {
		return nil, fmt.Errorf("client %s: rpc launcher requires a JWT secret", config.Name)
	}
	return &rpcLauncher{
		url:     config.URL,
		secret:  secret,
		timeout: config.CallTimeout,
		dial:    engine.Dial,
		log:     log,
	}, nil
}

func (l *rpcLauncher) Launch(ctx context.Context, id group.Identifier, genesis []byte) (lifecycle.Handle, error) {
	client, err := l.dial(ctx, l.url, l.secret, l.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", l.url, err)
	}
	l.log.Debug().Str("group", id.String()).Str("url", l.url).Msg("attached to external client")
	return &handle{engine: client}, nil
}
