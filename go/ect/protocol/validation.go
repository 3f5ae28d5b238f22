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
	"github.com/Fantom-foundation/enginect/go/ect/engine"
	"github.com/Fantom-foundation/enginect/go/ect/exceptions"
	"github.com/Fantom-foundation/enginect/go/ect/fixture"
)

// validatePayload submits a payload of the fixture to the client and checks
// the client's verdict on it.
func (r *run) validatePayload(index int, payload *fixture.Payload) *Failure {
	const step = "new payload"
	version := int(payload.NewPayloadVersion)
	status, err := r.client.newPayload(
		r.ctx,
		version,
		payload.ExecutionPayload,
		payload.BlobVersionedHashes,
		payload.ParentBeaconBlockRoot,
		payload.ExecutionRequests,
	)

	if expected, found := payload.ExpectedErrorCode(); found {
		code, isTransportError := engine.TransportError(err)
		if err == nil {
			return r.fail(TransportErrorMismatch, step, nil, "expected error code %d, got status %s", expected, status.Status)
		}
		if !isTransportError {
			return r.fail(TransportErrorMismatch, step, err, "expected error code %d", expected)
		}
		if code != expected {
			return r.fail(TransportErrorMismatch, step, err, "expected error code %d, got %d", expected, code)
		}
		r.log.Debug().Int("payload", index).Int("code", code).Msg("expected error code received")
		return nil
	}
	if err != nil {
		return r.fail(TransportErrorMismatch, step, err, "unexpected error")
	}

	valid := payload.Valid()
	expectedStatus := engine.StatusInvalid
	if valid {
		expectedStatus = engine.StatusValid
	}
	if status.Status != expectedStatus {
		return r.fail(UnexpectedStatus, step, nil, "expected status %s, got %s", expectedStatus, status.Status)
	}

	if !valid {
		return r.checkValidationError(payload.ValidationError, status.ValidationError)
	}
	if r.finalize {
		return r.finalizeHead("forkchoice update", int(payload.ForkchoiceUpdatedVersion), payload.ExecutionPayload.BlockHash)
	}
	return nil
}

// checkValidationError classifies the reason given by a client for
// rejecting a payload and compares it with the expected categories.
func (r *run) checkValidationError(expected string, reported *string) *Failure {
	const step = "exception check"
	if reported == nil || *reported == "" {
		return r.fail(MissingValidationError, step, nil, "payload rejected without validation error")
	}
	if expected == "" {
		return nil
	}
	outcome, category := r.driver.matcher.Check(*reported, expected)
	switch outcome {
	case exceptions.Matched:
		return nil
	case exceptions.Mismatched:
		return r.fail(ErrorCategoryMismatch, step, nil, "expected %s, got %s (%q)", expected, category, *reported)
	}
	if r.driver.config.Strict {
		return r.fail(UnmappedError, step, nil, "no category for %q, expected %s", *reported, expected)
	}
	r.warn("unmapped validation error %q, expected %s", *reported, expected)
	return nil
}
