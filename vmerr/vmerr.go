// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vmerr defines the three-way error taxonomy every operation in
// this module reports through: a BlockError fails the whole block, an
// ApplicationError unwinds to the nearest call context and materializes as
// an HTTP-shaped response, and an InternalError is unrecoverable at the
// whole-request level. Status codes are only attached at the boundary
// where an ApplicationError becomes a response.
package vmerr

import (
	"errors"
	"fmt"
)

// StatusCode is one of the HTTP-shaped status codes an application-level
// failure or a successful invocation surfaces as.
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusBadRequest          StatusCode = 400
	StatusForbidden           StatusCode = 403
	StatusNotFound            StatusCode = 404
	StatusDeclaredLimitViolated StatusCode = 420
	StatusExecutionTimeout    StatusCode = 421
	StatusInternalError       StatusCode = 500
	StatusLimitExceeded       StatusCode = 520
	StatusInvalidOperation    StatusCode = 521
	StatusArithmeticError     StatusCode = 522
	StatusReentrancyAttempt   StatusCode = 523
	StatusMemoryFault         StatusCode = 524
	StatusOutOfRange          StatusCode = 525
)

// BlockError fails the entire block: a proof of non-existence is missing,
// the declared dependency graph doesn't account for a real collision, a
// digest mismatch is detected, or the execution graph isn't actually a DAG.
type BlockError struct {
	msg string
	err error
}

func NewBlockError(format string, args ...any) error {
	return &BlockError{msg: fmt.Sprintf(format, args...)}
}

func WrapBlockError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &BlockError{msg: fmt.Sprintf(format, args...), err: err}
}

func (e *BlockError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *BlockError) Unwrap() error { return e.err }

// ApplicationError is a single invocation's failure: it carries the status
// code and response body the caller observes, and unwinds only to the
// nearest call context.
type ApplicationError struct {
	Status StatusCode
	Body   string
}

func NewApplicationError(status StatusCode, format string, args ...any) *ApplicationError {
	return &ApplicationError{Status: status, Body: fmt.Sprintf(format, args...)}
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// InternalError is unrecoverable at the whole-request level: a bug, an
// exhausted resource outside any declared budget, a broken invariant.
// It always surfaces as StatusInternalError once translated to a response.
type InternalError struct {
	err error
}

func NewInternalError(err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{err: err}
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %v", e.err) }
func (e *InternalError) Unwrap() error { return e.err }

// AsApplicationError reports whether err (or something it wraps) is an
// ApplicationError, per the call-context unwinding rule of 4.7's state
// machine: a callee status >= 400 propagates automatically through
// dependant_call, but not beyond invoke_dispatcher's own top-level return.
func AsApplicationError(err error) (*ApplicationError, bool) {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsBlockError reports whether err (or something it wraps) is a BlockError.
func IsBlockError(err error) bool {
	var blockErr *BlockError
	return errors.As(err, &blockErr)
}
