// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vsm implements the virtual signature manager: a per-session,
// append-only table letting one application authorize another within the
// same transaction without real cryptography. A bounded cost accounting
// scheme stands in for the memory a real signature table would consume.
package vsm

import (
	"sync"

	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/utils/set"
	"github.com/luxfi/execore/vmerr"
)

// SigConstantCost is the fixed per-entry overhead charged on top of a
// message's length, modeling the bookkeeping cost of a real signature.
const SigConstantCost = 8

// MaxCost bounds the manager's total accounted cost across every app.
const MaxCost = 128 * 1024

// Manager is the per-session signature table. It is not safe to share
// across sessions, but is safe for concurrent use within one, since
// multiple call contexts of the same request may sign/verify concurrently
// once the executor parallelizes independent requests.
type Manager struct {
	mu       sync.Mutex
	cost     int
	messages map[ids.LongID]set.Set[string]
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{messages: make(map[ids.LongID]set.Set[string])}
}

// Sign records msg as authorized by issuerApp. Re-signing an
// already-recorded message is a no-op. It fails with StatusLimitExceeded
// once the table's accounted cost would exceed MaxCost.
func (m *Manager) Sign(issuerApp ids.LongID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs, ok := m.messages[issuerApp]
	if !ok {
		msgs = set.NewSet[string](1)
		m.messages[issuerApp] = msgs
	}
	if msgs.Contains(msg) {
		return nil
	}

	addedCost := len(msg) + SigConstantCost
	if m.cost+addedCost > MaxCost {
		return vmerr.NewApplicationError(vmerr.StatusLimitExceeded, "virtual signature table is full")
	}
	msgs.Add(msg)
	m.cost += addedCost
	return nil
}

// Verify reports whether msg was signed by issuerApp, without consuming it.
func (m *Manager) Verify(issuerApp ids.LongID, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, ok := m.messages[issuerApp]
	if !ok {
		return false
	}
	return msgs.Contains(msg)
}

// VerifyAndInvalidate reports whether msg was signed by issuerApp and, if
// so, removes it and refunds its cost -- a signature can authorize exactly
// one consuming verification.
func (m *Manager) VerifyAndInvalidate(issuerApp ids.LongID, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, ok := m.messages[issuerApp]
	if !ok || !msgs.Contains(msg) {
		return false
	}
	msgs.Remove(msg)
	m.cost -= len(msg) + SigConstantCost
	return true
}
