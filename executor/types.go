// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor runs one application invocation per worker under
// resource isolation: a per-invocation CPU-time budget and (nominal)
// stack-size budget derived from forwarded gas, fault isolation via
// recover(), and a gas-forwarding scheme that geometrically shrinks the
// external gas budget (by 2/3 per level) across nested calls.
package executor

import (
	"context"

	"github.com/luxfi/execore/ids"
)

// Dispatcher is the untrusted application entry point: given the request
// body it returns a status code and response body, or an error for a fault
// the executor must translate into an ApplicationError/InternalError.
type Dispatcher func(ctx context.Context, appID ids.LongID, request []byte) (status int, response []byte, err error)

// AppLoader resolves an application id to its dispatcher and reports
// whether the id is part of the request's declared access list -- a
// dependant_call to an undeclared app fails closed.
type AppLoader interface {
	Dispatcher(appID ids.LongID) (Dispatcher, bool)
	Declared(appID ids.LongID) bool
}

type deferredCall struct {
	appID   ids.LongID
	request []byte
}

// CallContext is one frame of the call stack: the app whose context is
// loaded into the heap modifier, its reentrancy lock, and the calls it
// deferred until after its own dispatcher invocation returns.
type CallContext struct {
	AppID                 ids.LongID
	RemainingExternalGas  int64
	HasLock               bool
	deferred              []deferredCall
}
