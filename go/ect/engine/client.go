// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	beacon "github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"
)

//go:generate mockgen -source client.go -destination client_mock.go -package engine

// Status values reported by clients in a payload status.
const (
	StatusValid    = "VALID"
	StatusInvalid  = "INVALID"
	StatusSyncing  = "SYNCING"
	StatusAccepted = "ACCEPTED"
)

// Client is the subset of the engine and eth APIs of an execution client
// used for conformance testing. All methods are blocking network operations.
type Client interface {
	// NewPayload submits a payload for validation using engine_newPayloadV<version>.
	// Blob hashes and the beacon root are only sent for versions >= 3, execution
	// requests for versions >= 4.
	NewPayload(ctx context.Context, version int, payload *ExecutionPayload, blobHashes []common.Hash, beaconRoot *common.Hash, requests []hexutil.Bytes) (beacon.PayloadStatusV1, error)
	// ForkchoiceUpdated updates the head of the client's chain using
	// engine_forkchoiceUpdatedV<version>, optionally starting a payload build.
	ForkchoiceUpdated(ctx context.Context, version int, state beacon.ForkchoiceStateV1, attributes *PayloadAttributes) (beacon.ForkChoiceResponse, error)
	// GetPayload retrieves a built payload using engine_getPayloadV<version>.
	GetPayload(ctx context.Context, version int, id beacon.PayloadID) (*BuiltPayload, error)
	// SendRawTransaction adds a transaction to the client's pending pool.
	SendRawTransaction(ctx context.Context, tx hexutil.Bytes) (common.Hash, error)
	// BlockByNumber fetches a block by number or by tag ("latest", "0x0", ...).
	BlockByNumber(ctx context.Context, number string) (*Block, error)
	// Close releases the connection of this client.
	Close()
}

// ErrBlockNotFound is returned by BlockByNumber if the client does not know
// the requested block.
const ErrBlockNotFound = ConstError("block not found")

// ErrInvalidVersion is returned for API versions below 1.
const ErrInvalidVersion = ConstError("invalid API version")

// ConstError is an error type that can be used to define error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// TransportError extracts the JSON-RPC error code of an error reported by a
// client. The second result is false if the error is not a JSON-RPC error.
func TransportError(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// DefaultCallTimeout bounds every call issued by an RPC client.
const DefaultCallTimeout = 10 * time.Second

// rpcClient implements Client on top of a go-ethereum RPC connection.
type rpcClient struct {
	rpc     *rpc.Client
	timeout time.Duration
}

// Dial connects to the authenticated engine API endpoint at the given URL.
// Every call is bounded by the given timeout, DefaultCallTimeout if zero.
func Dial(ctx context.Context, url string, jwtSecret [32]byte, timeout time.Duration) (Client, error) {
	conn, err := rpc.DialOptions(ctx, url, rpc.WithHTTPAuth(node.NewJWTAuth(jwtSecret)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return NewClient(conn, timeout), nil
}

// NewClient wraps an established RPC connection.
func NewClient(conn *rpc.Client, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &rpcClient{rpc: conn, timeout: timeout}
}

func (c *rpcClient) call(ctx context.Context, result any, method string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rpc.CallContext(ctx, result, method, args...)
}

func (c *rpcClient) NewPayload(
	ctx context.Context,
	version int,
	payload *ExecutionPayload,
	blobHashes []common.Hash,
	beaconRoot *common.Hash,
	requests []hexutil.Bytes,
) (beacon.PayloadStatusV1, error) {
	if version < 1 {
		return beacon.PayloadStatusV1{}, fmt.Errorf("%w: newPayload V%d", ErrInvalidVersion, version)
	}
	args := []any{payload}
	if version >= 3 {
		if blobHashes == nil {
			blobHashes = []common.Hash{}
		}
		args = append(args, blobHashes, beaconRoot)
	}
	if version >= 4 {
		if requests == nil {
			requests = []hexutil.Bytes{}
		}
		args = append(args, requests)
	}
	var status beacon.PayloadStatusV1
	err := c.call(ctx, &status, fmt.Sprintf("engine_newPayloadV%d", version), args...)
	return status, err
}

func (c *rpcClient) ForkchoiceUpdated(
	ctx context.Context,
	version int,
	state beacon.ForkchoiceStateV1,
	attributes *PayloadAttributes,
) (beacon.ForkChoiceResponse, error) {
	if version < 1 {
		return beacon.ForkChoiceResponse{}, fmt.Errorf("%w: forkchoiceUpdated V%d", ErrInvalidVersion, version)
	}
	var response beacon.ForkChoiceResponse
	err := c.call(ctx, &response, fmt.Sprintf("engine_forkchoiceUpdatedV%d", version), state, attributes.ForVersion(version))
	return response, err
}

func (c *rpcClient) GetPayload(ctx context.Context, version int, id beacon.PayloadID) (*BuiltPayload, error) {
	if version < 1 {
		return nil, fmt.Errorf("%w: getPayload V%d", ErrInvalidVersion, version)
	}
	method := fmt.Sprintf("engine_getPayloadV%d", version)

	// Version 1 returns the bare payload, later versions an envelope.
	if version == 1 {
		var payload ExecutionPayload
		if err := c.call(ctx, &payload, method, id); err != nil {
			return nil, err
		}
		return &BuiltPayload{ExecutionPayload: &payload}, nil
	}
	var built BuiltPayload
	if err := c.call(ctx, &built, method, id); err != nil {
		return nil, err
	}
	if built.ExecutionPayload == nil {
		return nil, fmt.Errorf("%s: response without execution payload", method)
	}
	return &built, nil
}

func (c *rpcClient) SendRawTransaction(ctx context.Context, tx hexutil.Bytes) (common.Hash, error) {
	var hash common.Hash
	err := c.call(ctx, &hash, "eth_sendRawTransaction", tx)
	return hash, err
}

func (c *rpcClient) BlockByNumber(ctx context.Context, number string) (*Block, error) {
	var block *Block
	if err := c.call(ctx, &block, "eth_getBlockByNumber", number, false); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, number)
	}
	return block, nil
}

func (c *rpcClient) Close() {
	c.rpc.Close()
}
