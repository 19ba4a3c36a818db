// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"sync"
	"time"

	"github.com/luxfi/execore/vmerr"
)

// MaxCallDepth bounds nested invocation depth; exceeding it fails the
// invocation with StatusLimitExceeded rather than growing the call stack
// without limit.
const MaxCallDepth = 16

const (
	defaultStackSize       = 2 * 1024 * 1024
	failCheckStackSize     = 1024 * 1024
	defaultGasCoefficient  = 300_000
	failCheckGasCoefficient = 150_000
)

// InvocationID is a monotonic per-request counter identifying one nested
// invocation, used to look the invocation up in the proposer-supplied
// failure sets.
type InvocationID int32

// FailureManager holds the proposer-declared sets of invocations that must
// fail on a stack-size or CPU-time check, so that a validator re-executing
// the same block deterministically reproduces the fate the proposer
// observed for each invocation, rather than depending on the validator's
// own hardware timing.
type FailureManager struct {
	mu sync.Mutex

	stackFailures   map[InvocationID]struct{}
	cpuTimeFailures map[InvocationID]struct{}
	callDepth       int
	lastGeneratedID InvocationID
}

// NewFailureManager builds a FailureManager from the proposer's declared
// failure sets. Either may be nil.
func NewFailureManager(stackFailures, cpuTimeFailures map[InvocationID]struct{}) *FailureManager {
	return &FailureManager{
		stackFailures:   stackFailures,
		cpuTimeFailures: cpuTimeFailures,
	}
}

// NextInvocation allocates a new invocation id and increments the call
// depth. CompleteInvocation must be called exactly once per NextInvocation,
// regardless of whether the invocation succeeded.
func (f *FailureManager) NextInvocation() InvocationID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastGeneratedID++
	f.callDepth++
	return f.lastGeneratedID
}

func (f *FailureManager) CompleteInvocation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callDepth--
}

// ExecTime returns the deterministic CPU-time budget for invocation id
// given its forwarded gas.
func (f *FailureManager) ExecTime(id InvocationID, gas int64) time.Duration {
	f.mu.Lock()
	_, failCheck := f.cpuTimeFailures[id]
	f.mu.Unlock()

	coeff := int64(defaultGasCoefficient)
	if failCheck {
		coeff = failCheckGasCoefficient
	}
	return time.Duration(gas*coeff) * time.Nanosecond
}

// StackSize returns the deterministic stack budget for invocation id, or a
// StatusLimitExceeded ApplicationError if the call depth has gone beyond
// MaxCallDepth. Go goroutine stacks grow and shrink automatically, so this
// budget is reported for deterministic replay rather than enforced as an
// allocation -- it is surfaced to callers that want to emulate the
// original's fixed-stack failure mode in tests.
func (f *FailureManager) StackSize(id InvocationID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callDepth > MaxCallDepth {
		return 0, vmerr.NewApplicationError(vmerr.StatusLimitExceeded, "max call depth reached")
	}
	if _, failCheck := f.stackFailures[id]; failCheck {
		return failCheckStackSize, nil
	}
	return defaultStackSize, nil
}
