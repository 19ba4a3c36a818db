// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package heap

import (
	"testing"

	"github.com/luxfi/execore/chunk"
	"github.com/luxfi/execore/ids"
	"github.com/stretchr/testify/require"
)

func newWritableChunk(t *testing.T, capacity int32, size int32) *chunk.Chunk {
	t.Helper()
	c, err := chunk.New(capacity)
	require.NoError(t, err)
	require.NoError(t, c.SetSize(size))
	c.SetWritable(true)
	return c
}

func TestStoreThenWriteToHeapCommits(t *testing.T) {
	c := newWritableChunk(t, 16, 8)
	ci, err := NewChunkInfo(c, ReadOnlySize, 0, []int32{0}, []AccessInfo{{Size: 4, Mode: AccessWritable}})
	require.NoError(t, err)

	appID := ids.LongID(1)
	chunkID := ids.LongID(2)
	m := New(map[ids.LongID]ChunkMap{appID: {ids.NewLongLongID(0, chunkID): ci}})
	m.LoadContext(appID)
	require.NoError(t, m.LoadChunk(0, chunkID))

	_, err = m.SaveVersion()
	require.NoError(t, err)
	require.NoError(t, m.Store(0, []byte{1, 2, 3, 4}))

	require.NoError(t, m.WriteToHeap())

	p, err := c.ContentPointer(0, 4)
	require.NoError(t, err)
	buf, err := p.Get(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, buf)
}

func TestRestoreVersionDiscardsWrites(t *testing.T) {
	c := newWritableChunk(t, 16, 8)
	ci, err := NewChunkInfo(c, ReadOnlySize, 0, []int32{0}, []AccessInfo{{Size: 4, Mode: AccessWritable}})
	require.NoError(t, err)

	appID, chunkID := ids.LongID(1), ids.LongID(2)
	m := New(map[ids.LongID]ChunkMap{appID: {ids.NewLongLongID(0, chunkID): ci}})
	m.LoadContext(appID)
	require.NoError(t, m.LoadChunk(0, chunkID))

	v0, err := m.SaveVersion()
	require.NoError(t, err)
	require.NoError(t, m.Store(0, []byte{9, 9, 9, 9}))
	require.NoError(t, m.RestoreVersion(v0))
	require.NoError(t, m.WriteToHeap())

	p, err := c.ContentPointer(0, 4)
	require.NoError(t, err)
	buf, err := p.Get(4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, buf)
}

func TestAdditiveAccumulatesAcrossRequests(t *testing.T) {
	c := newWritableChunk(t, 16, 8)
	offsets := []int32{0}
	appID, chunkID := ids.LongID(1), ids.LongID(2)

	mkModifier := func() *Modifier {
		ci, err := NewChunkInfo(c, ReadOnlySize, 0, offsets, []AccessInfo{{Size: 8, Mode: AccessAdditive}})
		require.NoError(t, err)
		m := New(map[ids.LongID]ChunkMap{appID: {ids.NewLongLongID(0, chunkID): ci}})
		m.LoadContext(appID)
		require.NoError(t, m.LoadChunk(0, chunkID))
		return m
	}

	delta := make([]byte, 8)
	delta[0] = 5 // +5, little-endian
	m1 := mkModifier()
	_, err := m1.SaveVersion()
	require.NoError(t, err)
	require.NoError(t, m1.AddInt(0, delta))
	require.NoError(t, m1.WriteToHeap())

	m2 := mkModifier()
	_, err = m2.SaveVersion()
	require.NoError(t, err)
	require.NoError(t, m2.AddInt(0, delta))
	require.NoError(t, m2.WriteToHeap())

	p, err := c.ContentPointer(0, 8)
	require.NoError(t, err)
	buf, err := p.Get(8)
	require.NoError(t, err)
	require.EqualValues(t, 10, buf[0])
}

func TestCheckOnlyBlockIsDefinedButNotReadable(t *testing.T) {
	c := newWritableChunk(t, 16, 8)
	ci, err := NewChunkInfo(c, ReadOnlySize, 0, []int32{0}, []AccessInfo{{Size: 4, Mode: AccessCheckOnly}})
	require.NoError(t, err)

	appID, chunkID := ids.LongID(1), ids.LongID(2)
	m := New(map[ids.LongID]ChunkMap{appID: {ids.NewLongLongID(0, chunkID): ci}})
	m.LoadContext(appID)
	require.NoError(t, m.LoadChunk(0, chunkID))

	valid, err := m.IsValid(0, 4)
	require.NoError(t, err)
	require.True(t, valid)

	_, err = m.Load(0, 4)
	require.Error(t, err)
}

func TestUpdateChunkSizeRespectsExpandableBound(t *testing.T) {
	c := newWritableChunk(t, 32, 4)
	ci, err := NewChunkInfo(c, Expandable, 16, nil, nil)
	require.NoError(t, err)
	appID, chunkID := ids.LongID(1), ids.LongID(2)
	m := New(map[ids.LongID]ChunkMap{appID: {ids.NewLongLongID(0, chunkID): ci}})
	m.LoadContext(appID)
	require.NoError(t, m.LoadChunk(0, chunkID))

	_, err = m.SaveVersion()
	require.NoError(t, err)
	require.NoError(t, m.UpdateChunkSize(10))
	require.Error(t, m.UpdateChunkSize(2)) // below initial size, not allowed when expandable
	require.Error(t, m.UpdateChunkSize(17))

	require.NoError(t, m.WriteToHeap())
	require.EqualValues(t, 10, c.Size())
}
