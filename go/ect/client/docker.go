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
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/group"
	"github.com/Fantom-foundation/enginect/go/ect/lifecycle"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog"
)

//go:generate mockgen -source docker.go -destination docker_mock.go -package client

func init() {
	mustRegister("docker", newDockerLauncherFromEnv)
}

// Paths of the files provided to containers.
const (
	ContainerDataDir     = "/ect"
	ContainerGenesisPath = ContainerDataDir + "/genesis.json"
	ContainerJWTPath     = ContainerDataDir + "/jwt.hex"
)

// GroupLabel is the container label carrying the group identifier.
const GroupLabel = "ect.group"

// readinessPollInterval is the pause between readiness probes of a
// starting container.
const readinessPollInterval = 250 * time.Millisecond

// DockerAPI is the subset of the docker API used for running clients.
type DockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// DockerLauncher runs a container per client instance. The container is
// provided with the genesis of the group and a fresh JWT secret in
// ContainerDataDir and has its engine port published on the loopback
// interface.
type DockerLauncher struct {
	api    DockerAPI
	config Config
	log    zerolog.Logger
	clock  clock.Clock
	dial   dialFunc
	port   func() (int, error)
}

func newDockerLauncherFromEnv(config Config, log zerolog.Logger) (Launcher, error) {
	api, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker not available: %w", err)
	}
	return NewDockerLauncher(api, config, log, clock.NewDefaultClock())
}

// NewDockerLauncher creates a launcher running clients through the given
// docker API.
func NewDockerLauncher(api DockerAPI, config Config, log zerolog.Logger, clk clock.Clock) (*DockerLauncher, error) {
	if config.Image == "" {
		return nil, fmt.Errorf("client %s: docker launcher requires an image", config.Name)
	}
	if config.EnginePort <= 0 {
		config.EnginePort = DefaultEnginePort
	}
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = DefaultStartupTimeout
	}
	return &DockerLauncher{
		api:    api,
		config: config,
		log:    log,
		clock:  clk,
		dial:   engine.Dial,
		port:   freePort,
	}, nil
}

func (l *DockerLauncher) Launch(ctx context.Context, id group.Identifier, genesis []byte) (_ lifecycle.Handle, err error) {
	var cleanup []func(context.Context) error
	release := func(ctx context.Context) error {
		var errs []error
		for i := len(cleanup) - 1; i >= 0; i-- {
			errs = append(errs, cleanup[i](ctx))
		}
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
				l.log.Warn().Err(releaseErr).Str("group", id.String()).Msg("failed to clean up client")
			}
		}
	}()

	dir, err := os.MkdirTemp("", "ect_client_*")
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, func(context.Context) error { return os.RemoveAll(dir) })

	secret, found, err := l.config.Secret()
	if err != nil {
		return nil, err
	}
	if !found {
		if _, err := rand.Read(secret[:]); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "genesis.json"), genesis, 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "jwt.hex"), []byte(hex.EncodeToString(secret[:])), 0644); err != nil {
		return nil, err
	}

	hostPort, err := l.port()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate engine port: %w", err)
	}
	enginePort := nat.Port(fmt.Sprintf("%d/tcp", l.config.EnginePort))
	name := containerName(l.config.Name, id)
	created, err := l.api.ContainerCreate(ctx,
		&container.Config{
			Image:        l.config.Image,
			Cmd:          l.config.Command,
			Env:          l.config.Env,
			ExposedPorts: nat.PortSet{enginePort: struct{}{}},
			Labels:       map[string]string{GroupLabel: id.String()},
		},
		&container.HostConfig{
			Binds: []string{dir + ":" + ContainerDataDir + ":ro"},
			PortBindings: nat.PortMap{
				enginePort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(hostPort)}},
			},
		},
		nil, nil, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %s: %w", name, err)
	}
	containerID := created.ID
	cleanup = append(cleanup, func(ctx context.Context) error {
		return l.api.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	})

	if err := l.api.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", name, err)
	}
	cleanup = append(cleanup, func(ctx context.Context) error {
		timeout := int(l.config.StopTimeout.Seconds())
		return l.api.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	})

	url := fmt.Sprintf("http://127.0.0.1:%d", hostPort)
	client, err := l.dial(ctx, url, secret, l.config.CallTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to container %s: %w", name, err)
	}
	if err := l.awaitReady(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("container %s not ready: %w", name, err)
	}

	l.log.Info().
		Str("group", id.String()).
		Str("container", name).
		Str("url", url).
		Msg("client container started")
	return &handle{engine: client, close: release}, nil
}

// awaitReady polls the client until it serves the engine API or the
// startup timeout expired.
func (l *DockerLauncher) awaitReady(ctx context.Context, client engine.Client) error {
	deadline := l.clock.Now().Add(l.config.StartupTimeout)
	for {
		_, err := client.BlockByNumber(ctx, "0x0")
		if err == nil {
			return nil
		}
		if !l.clock.Now().Before(deadline) {
			return fmt.Errorf("no response within %v: %w", l.config.StartupTimeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.TickAfter(readinessPollInterval):
		}
	}
}

// containerName derives a unique docker container name for an instance of
// the given group.
func containerName(client string, id group.Identifier) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, client+"-"+id.String())
	if len(sanitized) > 48 {
		sanitized = sanitized[:48]
	}
	return "ect-" + sanitized + "-" + uuid.NewString()[:8]
}

// freePort asks the operating system for an unused TCP port.
func freePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
