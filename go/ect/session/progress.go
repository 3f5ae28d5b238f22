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
	"fmt"
	"io"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/lightningnetwork/lnd/clock"
)

// DefaultProgressInterval is the default period of progress reports.
const DefaultProgressInterval = 5 * time.Second

// startProgressPrinter periodically reports the number of executed and
// failed tests until the returned function is called. The returned function
// blocks until the printer stopped.
func startProgressPrinter(
	out io.Writer,
	clk clock.Clock,
	interval time.Duration,
	total int,
	executed func() int,
	failed func() int,
) (stop func()) {
	done := make(chan struct{})
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		startTime := clk.Now()
		lastTime := startTime
		lastCounter := 0
		for {
			select {
			case <-done:
				return
			case curTime := <-clk.TickAfter(interval):
				cur := executed()

				diffCounter := cur - lastCounter
				diffTime := curTime.Sub(lastTime)

				lastTime = curTime
				lastCounter = cur

				rate := 0.0
				if diffTime > 0 {
					rate = float64(diffCounter) / diffTime.Seconds()
				}
				relativeTime := curTime.Sub(startTime)
				fmt.Fprintf(out,
					"[t=%4d:%02d] - Processing ~%s tests per second, executed %d of %d, failed %d\n",
					int(relativeTime.Seconds())/60, int(relativeTime.Seconds())%60,
					unitconv.FormatPrefix(rate, unitconv.SI, 0), cur, total, failed(),
				)
			}
		}
	}()
	return func() {
		close(done)
		<-printerDone
	}
}
