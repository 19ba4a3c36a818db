// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vmerr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsApplicationErrorUnwraps(t *testing.T) {
	appErr := NewApplicationError(StatusReentrancyAttempt, "reentrancy is not allowed")
	wrapped := fmt.Errorf("dispatcher: %w", appErr)

	got, ok := AsApplicationError(wrapped)
	require.True(t, ok)
	require.Equal(t, StatusReentrancyAttempt, got.Status)
}

func TestIsBlockErrorDoesNotMatchApplicationError(t *testing.T) {
	require.False(t, IsBlockError(NewApplicationError(StatusBadRequest, "bad")))
	require.True(t, IsBlockError(NewBlockError("execution graph is not a dag")))
}
