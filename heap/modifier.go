// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package heap

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/execore/ids"
)

// MaxVersion caps how many nested call contexts a single request may open
// via SaveVersion, matching the original int16 version counter's bound.
const MaxVersion = 30000

// ChunkMap is one application's declared chunk accesses for a request,
// keyed by the (accountID, localID) pair packed into a LongLongID;
// index.BuildModifier keys every chunk as (0, chunkID).
type ChunkMap map[ids.LongLongID]*ChunkInfo

// Modifier is the versioned, bounds-checked view over a request's entire
// declared access map. It is single-threaded: one Modifier instance serves
// exactly one request's invocation tree, and nested calls save/restore
// versions instead of branching into separate modifiers.
type Modifier struct {
	currentVersion int16
	currentChunk   *ChunkInfo
	chunks         ChunkMap
	appsAccessMaps map[ids.LongID]ChunkMap
}

// New builds a Modifier over the given per-application chunk maps.
func New(appsAccessMaps map[ids.LongID]ChunkMap) *Modifier {
	return &Modifier{appsAccessMaps: appsAccessMaps}
}

// LoadContext switches the modifier to the given application's access map.
// Unlike LoadChunk, it never errors: a missing appID simply leaves no
// chunk map loaded, matching the original's "must not throw" contract
// relied on by the dispatcher's app-not-found path.
func (m *Modifier) LoadContext(appID ids.LongID) {
	m.chunks = m.appsAccessMaps[appID]
	m.currentChunk = nil
}

// LoadChunk selects the chunk keyed (accountID, localID) in the current
// application's access map as the active chunk for subsequent
// Load/Store/AddInt calls.
func (m *Modifier) LoadChunk(accountID, localID ids.LongID) error {
	if m.chunks == nil {
		return fmt.Errorf("heap: no access map is loaded")
	}
	key := ids.NewLongLongID(accountID, localID)
	ci, ok := m.chunks[key]
	if !ok {
		return fmt.Errorf("heap: chunk [%s.%s] is not defined", accountID, localID)
	}
	m.currentChunk = ci
	return nil
}

// SaveVersion opens a new overlay version and returns its number, used by
// the executor to snapshot heap state before a nested call so it can be
// discarded with RestoreVersion if the call fails.
func (m *Modifier) SaveVersion() (int16, error) {
	if m.currentVersion == MaxVersion {
		return 0, fmt.Errorf("heap: version limit reached")
	}
	v := m.currentVersion
	m.currentVersion++
	return v, nil
}

// RestoreVersion discards every overlay version newer than v, rolling back
// every write made since the matching SaveVersion call.
func (m *Modifier) RestoreVersion(v int16) error {
	if v >= m.currentVersion || v < 0 {
		return fmt.Errorf("heap: restoring an invalid version")
	}
	m.currentVersion = v
	return nil
}

func (m *Modifier) accessBlock(offset int32) (*AccessBlock, error) {
	if m.currentChunk == nil {
		return nil, fmt.Errorf("heap: chunk is not loaded")
	}
	return m.currentChunk.block(offset)
}

// IsValid reports whether offset..offset+size lies within the currently
// loaded chunk's live size, requiring that an access block of at least
// size bytes is declared at offset.
func (m *Modifier) IsValid(offset int32, size uint32) (bool, error) {
	b, err := m.accessBlock(offset)
	if err != nil {
		return false, err
	}
	if !b.Defined(size) {
		return false, fmt.Errorf("heap: isValid: access block not defined")
	}
	sizeBytes, err := m.currentChunk.sizeBlock.prepareToRead(m.currentVersion, 0, 4)
	if err != nil {
		return false, err
	}
	chunkSize := binary.LittleEndian.Uint32(sizeBytes)
	return uint64(offset)+uint64(size) <= uint64(chunkSize), nil
}

// Load reads size bytes at offset from the currently loaded chunk.
func (m *Modifier) Load(offset int32, size uint32) ([]byte, error) {
	b, err := m.accessBlock(offset)
	if err != nil {
		return nil, err
	}
	return b.prepareToRead(m.currentVersion, 0, size)
}

// Store writes value into offset in the currently loaded chunk.
func (m *Modifier) Store(offset int32, value []byte) error {
	b, err := m.accessBlock(offset)
	if err != nil {
		return err
	}
	dst, err := b.prepareToWrite(m.currentVersion, 0, uint32(len(value)))
	if err != nil {
		return err
	}
	copy(dst, value)
	return nil
}

// AddInt accumulates delta (little-endian, len(delta) bytes wide) into the
// additive access block at offset.
func (m *Modifier) AddInt(offset int32, delta []byte) error {
	b, err := m.accessBlock(offset)
	if err != nil {
		return err
	}
	return b.addInt(m.currentVersion, delta)
}

// GetChunkSize returns the currently loaded chunk's logical size as of the
// modifier's current version. It is an error to call this on a chunk whose
// resizing policy is NonAccessibleSize.
func (m *Modifier) GetChunkSize() (uint32, error) {
	if m.currentChunk == nil {
		return 0, fmt.Errorf("heap: chunk is not loaded")
	}
	if m.currentChunk.resizing == NonAccessibleSize {
		return 0, fmt.Errorf("heap: chunkSize is not accessible")
	}
	buf, err := m.currentChunk.sizeBlock.prepareToRead(m.currentVersion, 0, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// UpdateChunkSize declares a new logical size for the currently loaded
// chunk, validated against its resizing policy and bound.
func (m *Modifier) UpdateChunkSize(newSize uint32) error {
	ci := m.currentChunk
	if ci == nil {
		return fmt.Errorf("heap: chunk is not loaded")
	}
	cur, err := m.GetChunkSize()
	if err != nil {
		return err
	}
	if newSize == cur {
		return nil
	}
	switch ci.resizing {
	case Expandable:
		if newSize < ci.initialSize || newSize > ci.sizeBound {
			return fmt.Errorf("heap: invalid chunk size for expanding")
		}
	case Shrinkable:
		if newSize > ci.initialSize || newSize < ci.sizeBound {
			return fmt.Errorf("heap: invalid chunk size for shrinking")
		}
	default:
		return fmt.Errorf("heap: chunk is not resizable")
	}
	dst, err := ci.sizeBlock.prepareToWrite(m.currentVersion, 0, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, newSize)
	return nil
}

// WriteToHeap commits every chunk touched by this request's access map
// into its live storage: resizable chunks are truncated/extended to their
// final declared size first, then every writable access block at an
// offset below that final size is flushed in ascending offset order
// (negative sentinel offsets are always skipped). A modifier whose
// currentVersion is 0 (no SaveVersion since creation, or restored to
// version 0) commits nothing.
func (m *Modifier) WriteToHeap() error {
	if m.currentVersion == 0 {
		return nil
	}
	for _, chunkMap := range m.appsAccessMaps {
		for _, ci := range chunkMap {
			sizeBuf, err := ci.sizeBlock.prepareToRead(m.currentVersion, 0, 4)
			if err != nil {
				return err
			}
			chunkSize := binary.LittleEndian.Uint32(sizeBuf)

			if ci.resizing == Expandable || ci.resizing == Shrinkable {
				mu := ci.ptr.ContentMutex()
				mu.Lock()
				err := ci.ptr.SetSize(int32(chunkSize))
				mu.Unlock()
				if err != nil {
					return err
				}
			}
			if chunkSize == 0 || !ci.ptr.IsWritable() {
				continue
			}
			for _, offset := range ci.offsets {
				if offset < 0 {
					continue
				}
				if uint32(offset) >= chunkSize {
					break // offsets are sorted ascending
				}
				b := ci.blocks[offset]
				if err := b.wrToHeap(ci.ptr, m.currentVersion, chunkSize-uint32(offset)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
