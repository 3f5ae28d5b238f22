// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package session

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

type syncBuffer struct {
	buffer bytes.Buffer
	mu     sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

func TestProgressPrinter_ReportsCountersPeriodically(t *testing.T) {
	var out syncBuffer
	stop := startProgressPrinter(
		&out, clock.NewDefaultClock(), time.Millisecond, 10,
		func() int { return 7 },
		func() int { return 2 },
	)

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "executed 7 of 10, failed 2") {
		if time.Now().After(deadline) {
			stop()
			t.Fatalf("no progress reported, got %q", out.String())
		}
		time.Sleep(time.Millisecond)
	}
	stop()

	printed := out.String()
	time.Sleep(10 * time.Millisecond)
	if out.String() != printed {
		t.Errorf("printer still active after stop")
	}
}
