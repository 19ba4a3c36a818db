// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"go.uber.org/zap"

	"github.com/luxfi/execore/ids"
	luxlog "github.com/luxfi/log"
)

// BlockDecision logs a validator's accept/reject outcome for a block, the
// one event every consumer of this package's logger cares about seeing at
// info level regardless of how verbose the rest of their configuration is.
func BlockDecision(l luxlog.Logger, blockID ids.Digest, accepted bool, reason string) {
	if accepted {
		l.Info("block accepted", zap.Stringer("blockID", blockID))
		return
	}
	l.Warn("block rejected", zap.Stringer("blockID", blockID), zap.String("reason", reason))
}

// SchedulerStall logs that the ready queue drained before every declared
// request had run, which only happens on a declared-graph bug since
// BuildExecDag already rejects cycles before the queue opens.
func SchedulerStall(l luxlog.Logger, remaining int32) {
	l.Error("scheduler stalled with requests outstanding", zap.Int32("remaining", remaining))
}

// ExecutorFault logs a non-application failure surfaced from a single
// invocation: a timeout, a reentrancy denial, or a recovered runtime panic.
func ExecutorFault(l luxlog.Logger, appID ids.LongID, status int, cause string) {
	l.Warn("invocation faulted",
		zap.Stringer("appID", appID),
		zap.Int("status", status),
		zap.String("cause", cause),
	)
}
