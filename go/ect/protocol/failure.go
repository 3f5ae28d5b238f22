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
	"fmt"
	"strings"
)

// Category classifies the way a client violated the expected protocol
// conversation.
type Category string

const (
	// HandshakeFailure: the client did not accept the genesis block as head.
	HandshakeFailure Category = "HandshakeFailure"
	// GenesisMismatch: the client started from a different genesis block.
	GenesisMismatch Category = "GenesisMismatch"
	// UnexpectedStatus: a payload or forkchoice status other than expected.
	UnexpectedStatus Category = "UnexpectedStatus"
	// MissingValidationError: an invalid payload was rejected without reason.
	MissingValidationError Category = "MissingValidationError"
	// ErrorCategoryMismatch: a payload was rejected for the wrong reason.
	ErrorCategoryMismatch Category = "ErrorCategoryMismatch"
	// UnmappedError: a rejection reason not covered by the exception table.
	UnmappedError Category = "UnmappedError"
	// TransportErrorMismatch: a missing, unexpected or wrong JSON-RPC error.
	TransportErrorMismatch Category = "TransportErrorMismatch"
	// BuildFailure: the client failed to build the expected block.
	BuildFailure Category = "BuildFailure"
	// SelfRejection: the client rejected a block it built itself.
	SelfRejection Category = "SelfRejection"
	// Aborted: the test was canceled or exceeded its deadline.
	Aborted Category = "Aborted"
	// ClientFailure: no client could be provided for the test.
	ClientFailure Category = "ClientFailure"
)

// Failure describes the protocol violation ending a test.
type Failure struct {
	Category Category
	Step     string
	Payload  int // index of the payload being processed, -1 before the first
	Message  string
	Err      error
}

func (f *Failure) Error() string {
	var builder strings.Builder
	builder.WriteString(string(f.Category))
	if f.Step != "" {
		builder.WriteString(" in ")
		builder.WriteString(f.Step)
	}
	if f.Payload >= 0 {
		fmt.Fprintf(&builder, " of payload %d", f.Payload)
	}
	if f.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(f.Message)
	}
	if f.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(f.Err.Error())
	}
	return builder.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}
