// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package fixture provides the test cases executed against clients. Test
// cases are read from JSON fixture files, each mapping test ids to a test
// case, and reference a pre-allocation group file describing the genesis
// state of the client they are executed on.
package fixture

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TestCase is a single conformance test: a sequence of payloads to be
// processed by a client started from the genesis state of a pre-allocation
// group.
type TestCase struct {
	ID       string        `json:"-"`
	File     string        `json:"-"`
	Network  string        `json:"network"`
	PreHash  string        `json:"preHash"`
	Genesis  GenesisHeader `json:"genesisBlockHeader"`
	Payloads []*Payload    `json:"engineNewPayloads"`
}

// GenesisHeader is the part of the genesis block header checked against
// the client.
type GenesisHeader struct {
	Hash common.Hash `json:"hash"`
}

// Payload is a single step of a test case together with its expected
// outcome.
type Payload struct {
	ExecutionPayload         *engine.ExecutionPayload `json:"executionPayload"`
	BlobVersionedHashes      []common.Hash            `json:"blobVersionedHashes"`
	ParentBeaconBlockRoot    *common.Hash             `json:"parentBeaconBlockRoot"`
	ExecutionRequests        []hexutil.Bytes          `json:"executionRequests"`
	NewPayloadVersion        Number                   `json:"newPayloadVersion"`
	ForkchoiceUpdatedVersion Number                   `json:"forkchoiceUpdatedVersion"`
	GetPayloadVersion        Number                   `json:"getPayloadVersion"`
	ValidationError          string                   `json:"validationError"`
	ErrorCode                *Number                  `json:"errorCode"`
	ExplicitValid            *bool                    `json:"valid"`
	TargetBlobsPerBlock      *hexutil.Uint64          `json:"targetBlobsPerBlock"`
	MaxBlobsPerBlock         *hexutil.Uint64          `json:"maxBlobsPerBlock"`
}

type plainPayload Payload

// UnmarshalJSON accepts the arguments of the newPayload call either as named
// fields or as the positional "params" list of the call: execution payload,
// blob versioned hashes, parent beacon block root and execution requests.
// Positional arguments take precedence.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var encoded struct {
		plainPayload
		Params []json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	*p = Payload(encoded.plainPayload)

	targets := []any{
		&p.ExecutionPayload,
		&p.BlobVersionedHashes,
		&p.ParentBeaconBlockRoot,
		&p.ExecutionRequests,
	}
	if len(encoded.Params) > len(targets) {
		return fmt.Errorf("too many newPayload params: %d", len(encoded.Params))
	}
	for i, raw := range encoded.Params {
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("newPayload param %d: %w", i, err)
		}
	}
	return nil
}

// Valid reports whether the client is expected to accept the payload. A
// payload is valid if it expects neither a validation error nor a transport
// error code, unless explicitly declared otherwise.
func (p *Payload) Valid() bool {
	if p.ExplicitValid != nil {
		return *p.ExplicitValid
	}
	return p.ValidationError == "" && p.ErrorCode == nil
}

// ExpectedErrorCode returns the transport error code the client must raise
// when receiving the payload, if any.
func (p *Payload) ExpectedErrorCode() (int, bool) {
	if p.ErrorCode == nil {
		return 0, false
	}
	return int(*p.ErrorCode), true
}

// GetPayloadVersionOrDefault returns the declared getPayload version, which
// defaults to the newPayload version.
func (p *Payload) GetPayloadVersionOrDefault() int {
	if p.GetPayloadVersion > 0 {
		return int(p.GetPayloadVersion)
	}
	return int(p.NewPayloadVersion)
}

// ForkchoiceUpdatedVersion returns the forkchoiceUpdated version of the first
// payload of the test, used for the genesis handshake. Tests without
// payloads default to version 1.
func (t *TestCase) ForkchoiceUpdatedVersion() int {
	if len(t.Payloads) == 0 || t.Payloads[0].ForkchoiceUpdatedVersion < 1 {
		return 1
	}
	return int(t.Payloads[0].ForkchoiceUpdatedVersion)
}

func (t *TestCase) validate() error {
	if t.PreHash == "" {
		return fmt.Errorf("missing pre-allocation hash")
	}
	if strings.ContainsAny(t.PreHash, `/\:`) {
		return fmt.Errorf("invalid pre-allocation hash %q", t.PreHash)
	}
	for i, payload := range t.Payloads {
		if payload == nil || payload.ExecutionPayload == nil {
			return fmt.Errorf("payload %d: missing execution payload", i)
		}
		if payload.NewPayloadVersion < 1 {
			return fmt.Errorf("payload %d: missing newPayload version", i)
		}
		if payload.ForkchoiceUpdatedVersion < 1 {
			return fmt.Errorf("payload %d: missing forkchoiceUpdated version", i)
		}
	}
	return nil
}

// Number is an integer encoded in fixtures either as a JSON number or as a
// decimal string.
type Number int

func (n *Number) UnmarshalJSON(data []byte) error {
	text := string(data)
	if text == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = Number(value)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(n)))
}
