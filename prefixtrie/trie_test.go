// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prefixtrie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripUint(t *testing.T) {
	tr, err := New([]byte{0x80, 0xc0, 0xe0})
	require.NoError(t, err)

	for _, v := range []uint64{0, 1, 127, 128, 200} {
		buf := make([]byte, tr.Height())
		n, err := tr.EncodeUint(v, buf)
		require.NoError(t, err)
		got, m, err := tr.DecodeUint(buf, tr.Height())
		require.NoError(t, err)
		require.Equal(t, n, m)
		require.Equal(t, v, got)
	}
}

func TestMalformedTrieRejected(t *testing.T) {
	_, err := New([]byte{0xc0, 0x80})
	require.Error(t, err)
}

func TestParseIdentifier(t *testing.T) {
	tr, err := New([]byte{0x80, 0xc0})
	require.NoError(t, err)

	buf, err := tr.ParseIdentifier("10")
	require.NoError(t, err)
	require.Equal(t, []byte{10}, buf)

	_, err = tr.ParseIdentifier("300")
	require.Error(t, err)
}

func TestReadPrefixCodeTruncated(t *testing.T) {
	tr, err := New([]byte{0x80, 0xc0})
	require.NoError(t, err)
	_, _, err = tr.ReadPrefixCode(nil, 2)
	require.Error(t, err)
}
