// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	beacon "github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lightningnetwork/lnd/clock"
)

// Entry is a single call of the conversation with a client.
type Entry struct {
	Time    time.Time `json:"time"`
	Payload int       `json:"payload"`
	Method  string    `json:"method"`
	Params  []any     `json:"params,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// recorder wraps an engine client and records every call in the log.
type recorder struct {
	engine  engine.Client
	clock   clock.Clock
	payload int
	entries []Entry
}

func (r *recorder) record(method string, params []any, result any, err error) {
	entry := Entry{
		Time:    r.clock.Now(),
		Payload: r.payload,
		Method:  method,
		Params:  params,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Result = result
	}
	r.entries = append(r.entries, entry)
}

func (r *recorder) newPayload(
	ctx context.Context,
	version int,
	payload *engine.ExecutionPayload,
	blobHashes []common.Hash,
	beaconRoot *common.Hash,
	requests []hexutil.Bytes,
) (beacon.PayloadStatusV1, error) {
	status, err := r.engine.NewPayload(ctx, version, payload, blobHashes, beaconRoot, requests)
	params := []any{payload}
	if version >= 3 {
		params = append(params, blobHashes, beaconRoot)
	}
	if version >= 4 {
		params = append(params, requests)
	}
	r.record(fmt.Sprintf("engine_newPayloadV%d", version), params, status, err)
	return status, err
}

func (r *recorder) forkchoiceUpdated(
	ctx context.Context,
	version int,
	head common.Hash,
	attributes *engine.PayloadAttributes,
) (beacon.ForkChoiceResponse, error) {
	state := beacon.ForkchoiceStateV1{HeadBlockHash: head}
	response, err := r.engine.ForkchoiceUpdated(ctx, version, state, attributes)
	r.record(fmt.Sprintf("engine_forkchoiceUpdatedV%d", version), []any{state, attributes}, response, err)
	return response, err
}

func (r *recorder) getPayload(ctx context.Context, version int, id beacon.PayloadID) (*engine.BuiltPayload, error) {
	built, err := r.engine.GetPayload(ctx, version, id)
	r.record(fmt.Sprintf("engine_getPayloadV%d", version), []any{id}, built, err)
	return built, err
}

func (r *recorder) sendRawTransaction(ctx context.Context, tx hexutil.Bytes) (common.Hash, error) {
	hash, err := r.engine.SendRawTransaction(ctx, tx)
	r.record("eth_sendRawTransaction", []any{tx}, hash, err)
	return hash, err
}

func (r *recorder) blockByNumber(ctx context.Context, number string) (*engine.Block, error) {
	block, err := r.engine.BlockByNumber(ctx, number)
	r.record("eth_getBlockByNumber", []any{number, false}, block, err)
	return block, err
}
