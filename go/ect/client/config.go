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
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/exceptions"
	"gopkg.in/yaml.v3"
)

// Config describes a client under test and how instances of it are
// launched.
//
//	name: geth
//	launcher: docker
//	image: ethereum/client-go:latest
//	command: ["--authrpc.jwtsecret=/ect/jwt.hex", ...]
//	enginePort: 8551
//	startupTimeout: 60s
//	exceptionsFile: geth-exceptions.yaml
type Config struct {
	Name     string `yaml:"name"`
	Launcher string `yaml:"launcher"`

	// URL and JWTSecret address an externally started client (rpc launcher).
	URL       string `yaml:"url"`
	JWTSecret string `yaml:"jwtSecret"`

	// Container settings of the docker launcher.
	Image          string        `yaml:"image"`
	Command        []string      `yaml:"command"`
	Env            []string      `yaml:"env"`
	EnginePort     int           `yaml:"enginePort"`
	StartupTimeout time.Duration `yaml:"startupTimeout"`
	StopTimeout    time.Duration `yaml:"stopTimeout"`

	// CallTimeout bounds every engine API call.
	CallTimeout time.Duration `yaml:"callTimeout"`

	// The exception mapping is either given inline or in a separate file,
	// resolved relative to the configuration file.
	Exceptions     exceptions.Table `yaml:"exceptions"`
	ExceptionsFile string           `yaml:"exceptionsFile"`

	dir string
}

const (
	// DefaultEnginePort is the port of the authenticated engine API.
	DefaultEnginePort = 8551
	// DefaultStartupTimeout bounds the time until a launched client is ready.
	DefaultStartupTimeout = 60 * time.Second
	// DefaultStopTimeout is the grace period granted to stopping clients.
	DefaultStopTimeout = 10 * time.Second
)

// ParseConfig decodes a YAML encoded client configuration and fills in
// defaults for unset values.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("invalid client configuration: %w", err)
	}
	if config.Launcher == "" {
		config.Launcher = "docker"
	}
	if config.EnginePort == 0 {
		config.EnginePort = DefaultEnginePort
	}
	if config.StartupTimeout == 0 {
		config.StartupTimeout = DefaultStartupTimeout
	}
	if config.StopTimeout == 0 {
		config.StopTimeout = DefaultStopTimeout
	}
	return config, nil
}

// LoadConfig reads a client configuration from the given file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	config, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	config.dir = filepath.Dir(path)
	if config.Name == "" {
		config.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return config, nil
}

// ExceptionTable returns the exception mapping of the client. A table in a
// separate file takes precedence over an inline table.
func (c Config) ExceptionTable() (exceptions.Table, error) {
	if c.ExceptionsFile == "" {
		return c.Exceptions, nil
	}
	path := c.ExceptionsFile
	if !filepath.IsAbs(path) && c.dir != "" {
		path = filepath.Join(c.dir, path)
	}
	return exceptions.LoadTable(path)
}

// Secret decodes the configured hex encoded JWT secret. The second result
// is false if no secret is configured.
func (c Config) Secret() ([32]byte, bool, error) {
	var secret [32]byte
	encoded := strings.TrimPrefix(strings.TrimSpace(c.JWTSecret), "0x")
	if encoded == "" {
		return secret, false, nil
	}
	decoded, err := hex.DecodeString(encoded)
	if err != nil {
		return secret, false, fmt.Errorf("invalid JWT secret: %w", err)
	}
	if len(decoded) != len(secret) {
		return secret, false, fmt.Errorf("invalid JWT secret: expected %d bytes, got %d", len(secret), len(decoded))
	}
	copy(secret[:], decoded)
	return secret, true, nil
}
