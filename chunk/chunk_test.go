// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chunk

import (
	"testing"

	"github.com/luxfi/execore/ids"
	"github.com/stretchr/testify/require"
)

func TestSetSizeZeroFillsShrunkTail(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)
	require.NoError(t, c.SetSize(8))
	p, err := c.ContentPointer(0, 8)
	require.NoError(t, err)
	buf, err := p.Get(8)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = 0xff
	}
	require.NoError(t, c.SetSize(2))
	require.NoError(t, c.SetSize(8))
	buf, err = p.Get(8)
	require.NoError(t, err)
	for i := 2; i < 8; i++ {
		require.Equal(t, byte(0), buf[i], "byte %d must be zero after shrink/regrow", i)
	}
}

func TestReserveSpaceOnlyGrows(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)
	grew, err := c.ReserveSpace(4)
	require.NoError(t, err)
	require.False(t, grew)
	grew, err = c.ReserveSpace(32)
	require.NoError(t, err)
	require.True(t, grew)
	require.EqualValues(t, 32, c.Capacity())
}

func TestDeltaRoundTripAndRevert(t *testing.T) {
	c, err := New(64)
	require.NoError(t, err)
	require.NoError(t, c.SetSize(4))
	p, err := c.ContentPointer(0, 4)
	require.NoError(t, err)
	buf, err := p.Get(4)
	require.NoError(t, err)
	copy(buf, []byte{1, 2, 3, 4})

	next := []byte{1, 2, 9, 9, 9}
	delta, err := EncodeDelta([]byte{1, 2, 3, 4}, next)
	require.NoError(t, err)

	want := c.Digest()
	_ = want // digest of prev content isn't directly reused; compute expected from applying delta

	// applying the delta without a digest check produces next
	require.NoError(t, c.ApplyDeltaReversible(delta))
	got, err := c.ContentPointer(0, 5)
	require.NoError(t, err)
	gotBuf, err := got.Get(5)
	require.NoError(t, err)
	require.Equal(t, next, gotBuf)
	expected := c.Digest()
	_, err = c.ShrinkSpace()
	require.NoError(t, err)

	// reset and re-apply through the digest-checked entrypoint
	c2, err := New(64)
	require.NoError(t, err)
	require.NoError(t, c2.SetSize(4))
	p2, err := c2.ContentPointer(0, 4)
	require.NoError(t, err)
	buf2, err := p2.Get(4)
	require.NoError(t, err)
	copy(buf2, []byte{1, 2, 3, 4})
	require.NoError(t, c2.ApplyDelta(expected, delta))

	// wrong digest reverts to the exact original content
	c3, err := New(64)
	require.NoError(t, err)
	require.NoError(t, c3.SetSize(4))
	p3, err := c3.ContentPointer(0, 4)
	require.NoError(t, err)
	buf3, err := p3.Get(4)
	require.NoError(t, err)
	copy(buf3, []byte{1, 2, 3, 4})
	err = c3.ApplyDelta(ids.Digest{}, delta)
	require.Error(t, err)
	restored, err := p3.Get(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, restored)
}
