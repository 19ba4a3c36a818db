// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package index builds the block-wide chunk index: a flat lookup from
// (app, chunk) to the chunk pointer holding it across every page loaded
// for a block, plus the declared size bounds every resizable chunk must
// respect, and the BuildModifier step that turns a request's raw access
// map into a heap.Modifier ready for execution.
package index

import (
	"fmt"
	"sort"

	"github.com/luxfi/execore/chunk"
	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/page"
)

// SizeBounds declares the inclusive [lower, upper] size range a resizable
// chunk must stay within across the whole block.
type SizeBounds struct {
	Lower uint32
	Upper uint32
}

// RawAccess is one request's declared access to a single offset within a
// chunk: offset follows the original sentinel convention (-1 resize/-2
// read-size/-3 non-accessible-size are handled by the caller before this
// point; see BuildModifier) together with the byte width and mode.
type RawAccess struct {
	Offset int32
	Size   uint32
	Mode   heap.AccessMode
}

// RawChunkAccess is the set of accesses one request declares against a
// single chunk, plus the sentinel resize declaration (offset -1 or -2 in
// accesses) that determines the chunk's ResizingType for this request.
type RawChunkAccess struct {
	ChunkID  ids.LongID
	Accesses []RawAccess
}

// RawAppAccess groups a request's declared chunk accesses by application.
type RawAppAccess struct {
	AppID  ids.LongID
	Chunks []RawChunkAccess
}

// Index is the block-wide chunk lookup built once per block from every
// page loaded for it.
type Index struct {
	chunks     map[ids.FullID]*chunk.Chunk
	sizeBounds map[ids.FullID]SizeBounds
}

// New indexes every native and migrant chunk across pages, and reserves
// capacity up front for every chunk with a declared size upper bound --
// the only resize permitted outside of a request's own execution.
func New(pages map[ids.FullID]*page.Page, sizeBounds map[ids.FullID]SizeBounds) (*Index, error) {
	idx := &Index{
		chunks:     make(map[ids.FullID]*chunk.Chunk),
		sizeBounds: sizeBounds,
	}
	for id, p := range pages {
		idx.chunks[id] = p.Native()
		for migrantID, c := range p.Migrants() {
			idx.chunks[migrantID] = c
		}
	}
	for id, bounds := range sizeBounds {
		c, err := idx.GetChunk(id)
		if err != nil {
			return nil, err
		}
		if _, err := c.ReserveSpace(int32(bounds.Upper)); err != nil {
			return nil, fmt.Errorf("index: reserving space for %s: %w", id, err)
		}
	}
	return idx, nil
}

// GetChunk returns the chunk backing id. A missing chunk is reported as an
// error the block validator must treat as a block-level proof failure --
// a request can only read a proof of non-existence for a chunk that really
// doesn't exist, and any application-level access to an unindexed chunk
// means the block's declared access map is wrong.
func (idx *Index) GetChunk(id ids.FullID) (*chunk.Chunk, error) {
	c, ok := idx.chunks[id]
	if !ok {
		return nil, fmt.Errorf("index: missing proof of non-existence for %s", id)
	}
	return c, nil
}

// GetSizeLowerBound returns the declared lower bound for a resizable
// chunk; scheduler.CheckDependencyGraph uses it to skip accesses that end
// at or below it when checking resizing collisions.
func (idx *Index) GetSizeLowerBound(id ids.FullID) (uint32, error) {
	b, ok := idx.sizeBounds[id]
	if !ok {
		return 0, fmt.Errorf("index: missing chunk size bounds for %s", id)
	}
	return b.Lower, nil
}

// Resizing sentinel offsets, per the original access-map encoding: a
// negative offset in a request's raw access list declares the chunk's
// resizing policy instead of an ordinary access.
const (
	SentinelNonAccessible int32 = -3
	SentinelReadOnlySize  int32 = -2
	SentinelResizable     int32 = -1
)

// BuildModifier turns a request's raw, per-application access map into a
// heap.Modifier: every declared chunk is resolved through the index, its
// resizing policy inferred from its sentinel offset, and (for resizable
// chunks) the proposed new size validated against the block-wide size
// bounds before any access block is constructed.
func (idx *Index) BuildModifier(rawAccess []RawAppAccess) (*heap.Modifier, error) {
	appsAccessMaps := make(map[ids.LongID]heap.ChunkMap, len(rawAccess))

	for _, app := range rawAccess {
		chunkMap := make(heap.ChunkMap, len(app.Chunks))
		for _, rc := range app.Chunks {
			fullID := ids.FullID{AppID: app.AppID, ChunkID: rc.ChunkID}
			c, err := idx.GetChunk(fullID)
			if err != nil {
				return nil, err
			}

			sorted := append([]RawAccess(nil), rc.Accesses...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

			var resizing heap.ResizingType
			var sizeBound uint32
			if len(sorted) > 0 && sorted[0].Offset < 0 {
				sentinel := sorted[0]
				switch sentinel.Offset {
				case SentinelReadOnlySize:
					resizing = heap.ReadOnlySize
				case SentinelResizable:
					if int32(sentinel.Size) > 0 {
						resizing = heap.Expandable
						sizeBound = sentinel.Size
					} else {
						resizing = heap.Shrinkable
						sizeBound = uint32(-int32(sentinel.Size))
					}
				default:
					resizing = heap.NonAccessibleSize
				}

				if sentinel.Offset == SentinelResizable {
					bounds, ok := idx.sizeBounds[fullID]
					if !ok {
						return nil, fmt.Errorf("index: missing sizeBounds for chunk [%s]", fullID)
					}
					size := c.Size()
					newSize := int32(sentinel.Size)
					if uint32(size) < bounds.Lower || uint32(size) > bounds.Upper ||
						(newSize > 0 && uint32(newSize) > bounds.Upper) ||
						(newSize <= 0 && uint32(-newSize) < bounds.Lower) {
						return nil, fmt.Errorf("index: invalid sizeBounds for chunk [%s]", fullID)
					}
				}
			} else {
				resizing = heap.NonAccessibleSize
			}

			offsets := make([]int32, len(sorted))
			infos := make([]heap.AccessInfo, len(sorted))
			for i, a := range sorted {
				offsets[i] = a.Offset
				infos[i] = heap.AccessInfo{Size: a.Size, Mode: a.Mode}
			}

			ci, err := heap.NewChunkInfo(c, resizing, sizeBound, offsets, infos)
			if err != nil {
				return nil, err
			}
			chunkMap[ids.NewLongLongID(0, rc.ChunkID)] = ci
		}
		appsAccessMaps[app.AppID] = chunkMap
	}

	return heap.New(appsAccessMaps), nil
}
