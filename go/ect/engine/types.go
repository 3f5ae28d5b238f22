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
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

// ExecutionPayload is the execution payload of a block as exchanged through
// the engine API. Payloads decoded from JSON retain their original encoding,
// which is used verbatim when the payload is sent to a client. Fields of
// newer forks unknown to this type are thus forwarded unchanged. Decoded
// payloads must be treated as immutable.
type ExecutionPayload struct {
	ParentHash    common.Hash         `json:"parentHash"`
	FeeRecipient  common.Address      `json:"feeRecipient"`
	StateRoot     common.Hash         `json:"stateRoot"`
	ReceiptsRoot  common.Hash         `json:"receiptsRoot"`
	LogsBloom     hexutil.Bytes       `json:"logsBloom"`
	PrevRandao    common.Hash         `json:"prevRandao"`
	BlockNumber   hexutil.Uint64      `json:"blockNumber"`
	GasLimit      hexutil.Uint64      `json:"gasLimit"`
	GasUsed       hexutil.Uint64      `json:"gasUsed"`
	Timestamp     hexutil.Uint64      `json:"timestamp"`
	ExtraData     hexutil.Bytes       `json:"extraData"`
	BaseFeePerGas *hexutil.Big        `json:"baseFeePerGas"`
	BlockHash     common.Hash         `json:"blockHash"`
	Transactions  []hexutil.Bytes     `json:"transactions"`
	Withdrawals   []*types.Withdrawal `json:"withdrawals"`
	BlobGasUsed   *hexutil.Uint64     `json:"blobGasUsed,omitempty"`
	ExcessBlobGas *hexutil.Uint64     `json:"excessBlobGas,omitempty"`

	raw json.RawMessage
}

type plainExecutionPayload ExecutionPayload

func (p *ExecutionPayload) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*plainExecutionPayload)(p)); err != nil {
		return err
	}
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (p ExecutionPayload) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	return json.Marshal(plainExecutionPayload(p))
}

// TransactionHashes computes the hashes of the transactions of the payload.
func (p *ExecutionPayload) TransactionHashes() ([]common.Hash, error) {
	res := make([]common.Hash, 0, len(p.Transactions))
	for i, encoded := range p.Transactions {
		hash, err := TransactionHash(encoded)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		res = append(res, hash)
	}
	return res, nil
}

// TransactionHash computes the hash of a binary encoded transaction.
func TransactionHash(encoded []byte) (common.Hash, error) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(encoded); err != nil {
		return common.Hash{}, fmt.Errorf("invalid transaction encoding: %w", err)
	}
	return tx.Hash(), nil
}

// PayloadAttributes are the parameters of a block to be built by a client.
type PayloadAttributes struct {
	Timestamp             hexutil.Uint64      `json:"timestamp"`
	PrevRandao            common.Hash         `json:"prevRandao"`
	SuggestedFeeRecipient common.Address      `json:"suggestedFeeRecipient"`
	Withdrawals           []*types.Withdrawal `json:"withdrawals"`
	ParentBeaconBlockRoot *common.Hash        `json:"parentBeaconBlockRoot,omitempty"`
	TargetBlobsPerBlock   *hexutil.Uint64     `json:"targetBlobsPerBlock,omitempty"`
	MaxBlobsPerBlock      *hexutil.Uint64     `json:"maxBlobsPerBlock,omitempty"`
}

// ForVersion returns a copy of the attributes restricted to the fields
// defined by the given forkchoiceUpdated version. Withdrawals are omitted
// in version 1 and always present from version 2 on, the beacon root and
// blob schedule fields are only kept from version 3 on.
func (a *PayloadAttributes) ForVersion(version int) *PayloadAttributes {
	if a == nil {
		return nil
	}
	res := *a
	if version < 2 {
		res.Withdrawals = nil
	} else if res.Withdrawals == nil {
		res.Withdrawals = []*types.Withdrawal{}
	}
	if version < 3 {
		res.ParentBeaconBlockRoot = nil
		res.TargetBlobsPerBlock = nil
		res.MaxBlobsPerBlock = nil
	}
	return &res
}

type plainPayloadAttributes PayloadAttributes

// MarshalJSON omits the withdrawals field if the list is nil while empty
// lists are encoded as such.
func (a PayloadAttributes) MarshalJSON() ([]byte, error) {
	if a.Withdrawals != nil {
		return json.Marshal(plainPayloadAttributes(a))
	}
	return json.Marshal(struct {
		plainPayloadAttributes
		Withdrawals []*types.Withdrawal `json:"withdrawals,omitempty"`
	}{plainPayloadAttributes: plainPayloadAttributes(a)})
}

// BlobsBundle holds the blob sidecar data of a built payload.
type BlobsBundle struct {
	Commitments []hexutil.Bytes `json:"commitments"`
	Proofs      []hexutil.Bytes `json:"proofs"`
	Blobs       []hexutil.Bytes `json:"blobs"`
}

// VersionedHashes derives the versioned hashes of the bundled blobs from
// their KZG commitments.
func (b *BlobsBundle) VersionedHashes() ([]common.Hash, error) {
	if b == nil {
		return []common.Hash{}, nil
	}
	hasher := sha256.New()
	res := make([]common.Hash, 0, len(b.Commitments))
	for i, encoded := range b.Commitments {
		var commitment kzg4844.Commitment
		if len(encoded) != len(commitment) {
			return nil, fmt.Errorf("commitment %d has invalid length %d", i, len(encoded))
		}
		copy(commitment[:], encoded)
		hasher.Reset()
		res = append(res, common.Hash(kzg4844.CalcBlobHashV1(hasher, &commitment)))
	}
	return res, nil
}

// BuiltPayload is the result of retrieving a payload built by a client.
type BuiltPayload struct {
	ExecutionPayload  *ExecutionPayload `json:"executionPayload"`
	BlockValue        *hexutil.Big      `json:"blockValue,omitempty"`
	BlobsBundle       *BlobsBundle      `json:"blobsBundle,omitempty"`
	ExecutionRequests []hexutil.Bytes   `json:"executionRequests,omitempty"`
	Override          bool              `json:"shouldOverrideBuilder,omitempty"`
}

// Block is the subset of a block returned by eth_getBlockByNumber this
// package is interested in.
type Block struct {
	Number hexutil.Uint64 `json:"number"`
	Hash   common.Hash    `json:"hash"`
}
