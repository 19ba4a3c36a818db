// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoOpRegistryDiscardsObservations(t *testing.T) {
	r := NoOp()
	r.RequestLatency.Observe(10)
	r.RequestLatency.Observe(20)
	require.Equal(t, float64(15), r.RequestLatency.Read())

	r.GasConsumed.Add(100)
	require.Equal(t, int64(0), r.GasConsumed.Read())

	r.ReadyQueueDepth.Set(3)
	require.Equal(t, float64(0), r.ReadyQueueDepth.Read())
}

func TestAveragerIgnoresEmptyRead(t *testing.T) {
	a := newAverager()
	require.Equal(t, float64(0), a.Read())
}
