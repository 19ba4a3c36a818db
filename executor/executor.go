// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"

	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/vmerr"
)

// Request is one fully-resolved invocation ready to run: a gas budget, the
// heap modifier it executes against, and the app table and failure sets
// declared for it.
type Request struct {
	CalledAppID    ids.LongID
	HTTPRequest    []byte
	Gas            int64
	Modifier       *heap.Modifier
	Apps           AppLoader
	StackFailures  map[InvocationID]struct{}
	CPUFailures    map[InvocationID]struct{}
	SignedMessages []string
}

// Response is the HTTP-shaped outcome of running a Request.
type Response struct {
	Status int
	Body   []byte
}

// Executor runs one Request to completion, in isolation from every other
// request running concurrently on its own worker.
type Executor struct{}

func New() *Executor { return &Executor{} }

// Run is the top-level entry point, equivalent to the original's
// startSession followed by an invoke_dispatcher call forwarding the whole
// gas budget (255/256ths) to the called app. A critical, unrecovered
// failure (anything that isn't a well-formed ApplicationError) discards
// every version the invocation produced; otherwise the modifier is
// committed to the heap regardless of the final status, since an
// ApplicationError has already unwound to its own call context and
// restored that context's entry snapshot.
func (e *Executor) Run(ctx context.Context, req Request) Response {
	failures := NewFailureManager(req.StackFailures, req.CPUFailures)
	session := NewSession(req.Modifier, req.Apps, failures, req.Gas, req.SignedMessages)

	status, body, err := session.InvokeDispatcher(ctx, 255, req.CalledAppID, req.HTTPRequest)
	if err != nil {
		if appErr, ok := vmerr.AsApplicationError(err); ok {
			status, body = int(appErr.Status), []byte(appErr.Body)
		} else {
			_ = req.Modifier.RestoreVersion(0)
			status, body = int(vmerr.StatusInternalError), []byte(err.Error())
		}
	}
	_ = req.Modifier.WriteToHeap()
	return Response{Status: status, Body: body}
}

// InvokeDispatcher runs a controlled, resource-bounded invocation of
// appID's dispatcher: it forwards a fraction of the caller's remaining
// external gas, derives a CPU-time budget and nominal stack budget from
// the failure manager, pushes a new call context, and -- once the
// dispatcher returns successfully -- drains any calls it deferred before
// popping the context again. A failed or faulted invocation restores the
// heap to the version it held on entry.
func (s *Session) InvokeDispatcher(ctx context.Context, forwardedGas byte, appID ids.LongID, request []byte) (int, []byte, error) {
	if s.Depth() >= MaxCallDepth {
		return 0, nil, vmerr.NewApplicationError(vmerr.StatusLimitExceeded, "max call depth reached")
	}

	parent := s.Current()
	gas := forwardGas(parent.RemainingExternalGas, forwardedGas)
	if gas < minClocks {
		return 0, nil, vmerr.NewApplicationError(vmerr.StatusInvalidOperation, "forwarded gas is too low")
	}

	invocationID := s.Failures.NextInvocation()
	defer s.Failures.CompleteInvocation()

	if _, err := s.Failures.StackSize(invocationID); err != nil {
		return 0, nil, err
	}

	dispatch, ok := s.Apps.Dispatcher(appID)
	if !ok {
		return 0, nil, vmerr.NewApplicationError(vmerr.StatusNotFound, "app %s has no dispatcher", appID)
	}

	heapVersion, err := s.Modifier.SaveVersion()
	if err != nil {
		return 0, nil, vmerr.NewInternalError(err)
	}

	parent.RemainingExternalGas -= gas
	newCall := &CallContext{AppID: appID, RemainingExternalGas: calculateExternalGas(gas)}
	s.pushCall(newCall)
	s.Modifier.LoadContext(appID)

	execTime := s.Failures.ExecTime(invocationID, gas)
	status, body, runErr := runControlled(ctx, execTime, dispatch, appID, request)

	completed := runErr == nil && status < 400
	if completed {
		s.runDeferred(ctx, newCall)
	}
	s.popCall()
	delete(s.locks, appID)
	if !completed {
		_ = s.Modifier.RestoreVersion(heapVersion)
	}
	s.Modifier.LoadContext(s.Current().AppID)

	return status, body, runErr
}

// DependantCall performs a synchronous, in-thread call: unlike
// InvokeDispatcher it does not spawn a new goroutine or budget a CPU-time
// window of its own, since the original's OptimisticCaller runs it on the
// caller's own controlled thread. A callee status >= 400 is translated
// into an error and propagates to the caller automatically.
func (s *Session) DependantCall(ctx context.Context, appID ids.LongID, request []byte) ([]byte, error) {
	if !s.Apps.Declared(appID) {
		return nil, vmerr.NewApplicationError(vmerr.StatusDeclaredLimitViolated, "app %s is not in the declared access list", appID)
	}
	dispatch, ok := s.Apps.Dispatcher(appID)
	if !ok {
		return nil, vmerr.NewApplicationError(vmerr.StatusNotFound, "app %s has no dispatcher", appID)
	}

	caller := s.Current().AppID
	heapVersion, err := s.Modifier.SaveVersion()
	if err != nil {
		return nil, vmerr.NewInternalError(err)
	}

	s.Modifier.LoadContext(appID)
	status, body, err := dispatch(ctx, appID, request)
	completed := err == nil && status < 400
	if !completed {
		_ = s.Modifier.RestoreVersion(heapVersion)
	}
	s.Modifier.LoadContext(caller)

	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, vmerr.NewApplicationError(vmerr.StatusInvalidOperation, "dependant call to app %s failed with status %d", appID, status)
	}
	return body, nil
}

// InvokeDeferred queues a call to run after the current dispatcher
// invocation returns successfully, before its call context is popped. Its
// response is discarded; a failure does not propagate to the caller unless
// the caller explicitly re-dispatches it.
func (s *Session) InvokeDeferred(appID ids.LongID, request []byte) {
	cc := s.Current()
	cc.deferred = append(cc.deferred, deferredCall{appID: appID, request: request})
}

func (s *Session) runDeferred(ctx context.Context, cc *CallContext) {
	for _, d := range cc.deferred {
		dispatch, ok := s.Apps.Dispatcher(d.appID)
		if !ok {
			continue
		}
		heapVersion, err := s.Modifier.SaveVersion()
		if err != nil {
			continue
		}
		s.Modifier.LoadContext(d.appID)
		status, _, err := dispatch(ctx, d.appID, d.request)
		if err != nil || status >= 400 {
			_ = s.Modifier.RestoreVersion(heapVersion)
		}
		s.Modifier.LoadContext(cc.AppID)
	}
	cc.deferred = nil
}

// Revert produces the immediate, bad-request failure a dispatcher raises
// to abort its own invocation explicitly.
func Revert(format string, args ...any) error {
	return vmerr.NewApplicationError(vmerr.StatusBadRequest, format, args...)
}
