// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vsm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyAndInvalidate(t *testing.T) {
	m := New()
	require.NoError(t, m.Sign(1, "hello"))
	require.True(t, m.Verify(1, "hello"))
	require.False(t, m.Verify(2, "hello"))

	require.True(t, m.VerifyAndInvalidate(1, "hello"))
	require.False(t, m.Verify(1, "hello"))
	require.False(t, m.VerifyAndInvalidate(1, "hello"))
}

func TestSignRejectsOverflow(t *testing.T) {
	m := New()
	big := strings.Repeat("x", MaxCost)
	require.Error(t, m.Sign(1, big))
}

func TestSignIsIdempotent(t *testing.T) {
	m := New()
	require.NoError(t, m.Sign(1, "a"))
	costAfterFirst := m.cost
	require.NoError(t, m.Sign(1, "a"))
	require.Equal(t, costAfterFirst, m.cost)
}
