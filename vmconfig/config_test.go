// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vmconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	cfg, err := NewBuilder().Build()
	require.NoError(t, err)
	require.Equal(t, 16, cfg.MaxCallDepth)
	require.Greater(t, cfg.WorkerCount, 0)
}

func TestBuilderRejectsInvalidOverrides(t *testing.T) {
	_, err := NewBuilder().WithMaxCallDepth(0).Build()
	require.Error(t, err)

	_, err = NewBuilder().WithWorkerCount(-1).Build()
	require.Error(t, err)
}

func TestBuilderChainStopsAtFirstError(t *testing.T) {
	cfg, err := NewBuilder().WithMaxCallDepth(0).WithVSMMaxCost(99).Build()
	require.Error(t, err)
	require.Nil(t, cfg)
}
