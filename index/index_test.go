// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package index

import (
	"testing"

	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/page"
	"github.com/stretchr/testify/require"
)

func TestBuildModifierInfersResizingFromSentinel(t *testing.T) {
	p, err := page.New(1)
	require.NoError(t, err)
	require.NoError(t, p.Native().Resize(64))
	require.NoError(t, p.Native().SetSize(4))
	p.SetWritableFlag(true)

	appID, chunkID := ids.LongID(7), ids.LongID(1)
	fullID := ids.FullID{AppID: appID, ChunkID: chunkID}

	idx, err := New(
		map[ids.FullID]*page.Page{fullID: p},
		map[ids.FullID]SizeBounds{fullID: {Lower: 0, Upper: 32}},
	)
	require.NoError(t, err)

	m, err := idx.BuildModifier([]RawAppAccess{
		{
			AppID: appID,
			Chunks: []RawChunkAccess{
				{
					ChunkID: chunkID,
					Accesses: []RawAccess{
						{Offset: SentinelResizable, Size: 16}, // expandable up to 16
						{Offset: 0, Size: 4, Mode: heap.AccessWritable},
					},
				},
			},
		},
	})
	require.NoError(t, err)

	m.LoadContext(appID)
	require.NoError(t, m.LoadChunk(0, chunkID))
	_, err = m.SaveVersion()
	require.NoError(t, err)
	require.NoError(t, m.UpdateChunkSize(8))
	require.Error(t, m.UpdateChunkSize(32)) // exceeds the 16-byte bound
}

func TestGetChunkMissingIsError(t *testing.T) {
	idx, err := New(nil, nil)
	require.NoError(t, err)
	_, err = idx.GetChunk(ids.FullID{AppID: 1, ChunkID: 2})
	require.Error(t, err)
}
