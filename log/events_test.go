// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"testing"

	"github.com/luxfi/execore/ids"
)

func TestEventHelpersDoNotPanicOnNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	BlockDecision(l, ids.ZeroDigest, true, "")
	BlockDecision(l, ids.ZeroDigest, false, "response digest mismatch")
	SchedulerStall(l, 3)
	ExecutorFault(l, ids.LongID(7), 524, "nil dereference")
}
