// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package heap

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/luxfi/execore/chunk"
)

// ResizingType controls whether and how a chunk's size may change through
// this access. The sizeBound's meaning depends on it: an upper bound for
// Expandable, a lower bound for Shrinkable, and irrelevant otherwise.
type ResizingType int

const (
	Expandable ResizingType = iota
	Shrinkable
	ReadOnlySize
	NonAccessibleSize
)

// AccessInfo is one request's declared access to a single chunk offset:
// how many bytes it touches and under what mode.
type AccessInfo struct {
	Size uint32
	Mode AccessMode
}

// ChunkInfo is the per-chunk access declaration the heap modifier commits
// against: every offset the request touches in this chunk, plus the
// chunk's resizing policy for this access.
type ChunkInfo struct {
	ptr         *chunk.Chunk
	resizing    ResizingType
	sizeBound   uint32
	initialSize uint32
	sizeBlock   *AccessBlock
	offsets     []int32
	blocks      map[int32]*AccessBlock
}

// NewChunkInfo builds a ChunkInfo for c, declaring one access block per
// (offset, info) pair. Offsets must be pre-sorted ascending; negative
// offsets are sentinel/non-accessible declarations.
func NewChunkInfo(c *chunk.Chunk, resizing ResizingType, sizeBound uint32, offsets []int32, infos []AccessInfo) (*ChunkInfo, error) {
	if len(offsets) != len(infos) {
		return nil, fmt.Errorf("heap: offsets/infos length mismatch")
	}
	if !sort.SliceIsSorted(offsets, func(i, j int) bool { return offsets[i] < offsets[j] }) {
		return nil, fmt.Errorf("heap: offsets must be sorted")
	}

	blocks := make(map[int32]*AccessBlock, len(offsets))
	for i, off := range offsets {
		if infos[i].Mode.mayWrite() && !c.IsWritable() {
			return nil, fmt.Errorf("heap: trying to modify a readonly chunk")
		}
		if off < 0 {
			blocks[off] = newAccessBlock(nil, 0, AccessNone)
			continue
		}
		p, err := c.ContentPointer(off, int32(infos[i].Size))
		if err != nil {
			return nil, err
		}
		backing, err := p.Get(int32(infos[i].Size))
		if err != nil {
			return nil, err
		}
		blocks[off] = newAccessBlock(backing, infos[i].Size, infos[i].Mode)
	}

	initialSize := uint32(c.Size())
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, initialSize)
	sizeMode := AccessReadOnly
	if resizing == Expandable || resizing == Shrinkable {
		sizeMode = AccessWritable
	}

	return &ChunkInfo{
		ptr:         c,
		resizing:    resizing,
		sizeBound:   sizeBound,
		initialSize: initialSize,
		sizeBlock:   newAccessBlock(sizeBuf, 4, sizeMode),
		offsets:     offsets,
		blocks:      blocks,
	}, nil
}

func (ci *ChunkInfo) block(offset int32) (*AccessBlock, error) {
	b, ok := ci.blocks[offset]
	if !ok {
		return nil, fmt.Errorf("heap: no access block is defined at offset %d", offset)
	}
	return b, nil
}
