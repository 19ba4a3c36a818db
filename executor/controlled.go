// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/vmerr"
)

type controlledResult struct {
	status   int
	response []byte
	err      error
}

// runControlled executes dispatch on its own goroutine racing a
// context.WithTimeout derived from execTime, and recovers any panic the
// dispatcher raises, translating it into an ApplicationError instead of
// crashing the worker. Go has no safe forced-preemption primitive, so a
// timed-out goroutine is abandoned rather than killed; it may continue
// running in the background with no further effect on the session, since
// the caller proceeds as if it failed and restores the heap to the
// pre-call version.
func runControlled(ctx context.Context, execTime time.Duration, dispatch Dispatcher, appID ids.LongID, request []byte) (int, []byte, error) {
	cctx, cancel := context.WithTimeout(ctx, execTime)
	defer cancel()

	done := make(chan controlledResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- controlledResult{err: translateFault(r)}
			}
		}()
		status, response, err := dispatch(cctx, appID, request)
		done <- controlledResult{status: status, response: response, err: err}
	}()

	select {
	case r := <-done:
		return r.status, r.response, r.err
	case <-cctx.Done():
		return 0, nil, vmerr.NewApplicationError(vmerr.StatusExecutionTimeout, "execution timed out")
	}
}

// translateFault turns a recovered dispatcher panic into the
// ApplicationError §4.7's fault-isolation contract promises: an arithmetic
// fault (integer division by zero, since Go panics rather than trapping)
// becomes ArithmeticError, everything else a runtime.Error would have
// signaled as a hardware fault in the original (nil dereference, an
// out-of-bounds access) becomes MemoryFault.
func translateFault(r any) error {
	if err, ok := r.(runtime.Error); ok {
		if strings.Contains(err.Error(), "divide by zero") || strings.Contains(err.Error(), "integer overflow") {
			return vmerr.NewApplicationError(vmerr.StatusArithmeticError, "arithmetic fault: %v", err)
		}
		return vmerr.NewApplicationError(vmerr.StatusMemoryFault, "memory fault: %v", err)
	}
	if err, ok := r.(error); ok {
		return vmerr.NewApplicationError(vmerr.StatusMemoryFault, "fault: %v", err)
	}
	return vmerr.NewApplicationError(vmerr.StatusMemoryFault, "fault: %v", r)
}
