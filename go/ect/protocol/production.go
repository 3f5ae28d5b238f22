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
	"slices"

	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/fixture"
)

// producePayload makes the client build the block of a payload of the
// fixture from the payload's transaction and checks that the client builds
// and accepts the expected block.
func (r *run) producePayload(index int, payload *fixture.Payload) *Failure {
	expected := payload.ExecutionPayload
	if !payload.Valid() {
		r.log.Debug().Int("payload", index).Msg("skipping invalid payload")
		return nil
	}
	switch len(expected.Transactions) {
	case 0:
		r.log.Debug().Int("payload", index).Msg("skipping payload without transactions")
		return nil
	case 1:
	default:
		return r.fail(BuildFailure, "send transaction", nil,
			"unsupported configuration: %d transactions in payload", len(expected.Transactions))
	}

	txHash, err := r.client.sendRawTransaction(r.ctx, expected.Transactions[0])
	if err != nil {
		return r.fail(BuildFailure, "send transaction", err, "transaction not accepted")
	}

	head, err := r.client.blockByNumber(r.ctx, "latest")
	if err != nil {
		return r.fail(BuildFailure, "read head", err, "failed to fetch head block")
	}
	attributes := &engine.PayloadAttributes{
		Timestamp:             expected.Timestamp,
		PrevRandao:            expected.PrevRandao,
		SuggestedFeeRecipient: expected.FeeRecipient,
		Withdrawals:           expected.Withdrawals,
		ParentBeaconBlockRoot: payload.ParentBeaconBlockRoot,
		TargetBlobsPerBlock:   payload.TargetBlobsPerBlock,
		MaxBlobsPerBlock:      payload.MaxBlobsPerBlock,
	}
	fcuVersion := int(payload.ForkchoiceUpdatedVersion)
	response, err := r.client.forkchoiceUpdated(r.ctx, fcuVersion, head.Hash, attributes)
	if err != nil {
		return r.fail(BuildFailure, "start build", err, "forkchoice update with attributes failed")
	}
	if status := response.PayloadStatus.Status; status != engine.StatusValid {
		return r.fail(BuildFailure, "start build", nil, "forkchoice update with attributes returned %s", status)
	}
	if response.PayloadID == nil {
		return r.fail(BuildFailure, "start build", nil, "no payload id returned")
	}

	if err := sleep(r.ctx, r.driver.config.Clock, r.driver.config.BuildWait); err != nil {
		return r.fail(BuildFailure, "wait for build", err, "interrupted while waiting for build")
	}

	built, err := r.client.getPayload(r.ctx, payload.GetPayloadVersionOrDefault(), *response.PayloadID)
	if err != nil {
		return r.fail(BuildFailure, "get payload", err, "failed to retrieve built payload")
	}
	if built == nil || built.ExecutionPayload == nil {
		return r.fail(BuildFailure, "get payload", nil, "client returned no execution payload")
	}
	block := built.ExecutionPayload
	hashes, err := block.TransactionHashes()
	if err != nil {
		return r.fail(BuildFailure, "check build", err, "built payload contains invalid transactions")
	}
	if !slices.Contains(hashes, txHash) {
		return r.fail(BuildFailure, "check build", nil, "dropped transaction %v", txHash)
	}
	if block.GasUsed != expected.GasUsed {
		return r.fail(BuildFailure, "check build", nil, "gas used %d, expected %d", block.GasUsed, expected.GasUsed)
	}
	if block.StateRoot != expected.StateRoot {
		return r.fail(BuildFailure, "check build", nil, "state root %v, expected %v", block.StateRoot, expected.StateRoot)
	}

	blobHashes, err := built.BlobsBundle.VersionedHashes()
	if err != nil {
		return r.fail(BuildFailure, "check build", err, "invalid blobs bundle")
	}
	status, err := r.client.newPayload(
		r.ctx,
		int(payload.NewPayloadVersion),
		block,
		blobHashes,
		payload.ParentBeaconBlockRoot,
		built.ExecutionRequests,
	)
	if err != nil {
		return r.fail(SelfRejection, "resubmit", err, "built payload not accepted")
	}
	if status.Status != engine.StatusValid {
		return r.fail(SelfRejection, "resubmit", nil, "built payload %v reported %s", block.BlockHash, status.Status)
	}
	return r.finalizeHead("forkchoice update", fcuVersion, block.BlockHash)
}
