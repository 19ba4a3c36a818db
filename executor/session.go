// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/vmerr"
	"github.com/luxfi/execore/vsm"
)

// Session is the per-request state threaded through every invocation of a
// single AppRequest: the live heap modifier, the request's declared app
// table, its failure manager, its virtual signature manager, the
// reentrancy lock table, and the call stack. One Session is created per
// worker per request and discarded once the request's response has been
// produced.
type Session struct {
	Modifier *heap.Modifier
	Apps     AppLoader
	Failures *FailureManager
	Signer   *vsm.Manager

	locks map[ids.LongID]bool
	calls []*CallContext

	Response []byte
}

// NewSession builds a fresh session with the root call context (app 0,
// holding the request's entire initial gas budget) and a signature
// manager pre-seeded with signedMessages, as the request's own app
// declared them before execution began.
func NewSession(modifier *heap.Modifier, apps AppLoader, failures *FailureManager, initialGas int64, signedMessages []string) *Session {
	s := &Session{
		Modifier: modifier,
		Apps:     apps,
		Failures: failures,
		Signer:   vsm.New(),
		locks:    make(map[ids.LongID]bool),
	}
	s.calls = []*CallContext{{AppID: 0, RemainingExternalGas: initialGas}}
	for _, msg := range signedMessages {
		_ = s.Signer.Sign(0, msg)
	}
	return s
}

// Sign records msg as authorized by the currently executing app.
func (s *Session) Sign(msg string) error {
	return s.Signer.Sign(s.Current().AppID, msg)
}

// VerifySignature reports whether msg was signed by issuerApp, without
// consuming it.
func (s *Session) VerifySignature(issuerApp ids.LongID, msg string) bool {
	return s.Signer.Verify(issuerApp, msg)
}

// VerifyAndInvalidateSignature reports whether msg was signed by
// issuerApp and, if so, consumes it -- a signature authorizes exactly one
// verification.
func (s *Session) VerifyAndInvalidateSignature(issuerApp ids.LongID, msg string) bool {
	return s.Signer.VerifyAndInvalidate(issuerApp, msg)
}

// Current returns the call context currently executing.
func (s *Session) Current() *CallContext {
	return s.calls[len(s.calls)-1]
}

func (s *Session) pushCall(cc *CallContext) {
	s.calls = append(s.calls, cc)
}

func (s *Session) popCall() {
	s.calls = s.calls[:len(s.calls)-1]
}

// Depth reports the current call-stack depth, including the root frame.
func (s *Session) Depth() int {
	return len(s.calls)
}

// EnterArea acquires the reentrancy lock for appID, keyed per session, not
// per call context, since the lock must be visible to every nested call
// regardless of which frame is currently running.
func (s *Session) EnterArea(appID ids.LongID) error {
	if s.locks[appID] {
		return vmerr.NewApplicationError(vmerr.StatusReentrancyAttempt, "reentrancy is not allowed")
	}
	s.locks[appID] = true
	s.Current().HasLock = true
	return nil
}

// ExitArea releases the reentrancy lock for appID.
func (s *Session) ExitArea(appID ids.LongID) {
	delete(s.locks, appID)
	s.Current().HasLock = false
}
