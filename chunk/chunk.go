// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chunk implements the smallest unit of versioned heap storage: a
// resizable byte buffer with a reversible, digest-verified delta format.
// Deltas are applied with a self-inverse XOR so that an incorrectly applied
// delta can always be rolled back by reapplying it.
package chunk

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/prefixtrie"
)

// MaxAllowedCapacity is the largest capacity a chunk may ever hold: 64 KiB,
// matching the page size a chunk cannot outgrow.
const MaxAllowedCapacity = 64 * 1024

// varSizeTrie is the prefix code used to encode delta offsets, block sizes,
// and the XOR of the chunk's pre- and post-delta sizes -- the Go equivalent
// of gVarSizeTrie.
var varSizeTrie = mustTrie([]byte{0xd0, 0xf0, 0xfc, 0xff})

func mustTrie(table []byte) *prefixtrie.Trie {
	t, err := prefixtrie.New(table)
	if err != nil {
		panic(err)
	}
	return t
}

// Chunk is a resizable, zero-filled-on-shrink byte buffer addressed by
// offset. New chunks always start at size zero; callers grow their size
// with SetSize, within the capacity set by New, Resize or ReserveSpace. A chunk's bytes beyond its current size are always zero, which is
// required for every validator to agree on execution results deterministically.
type Chunk struct {
	mu       sync.RWMutex
	content  []byte
	size     int32
	capacity int32
	writable atomic.Bool

	contentMu sync.Mutex // held by the heap's additive and size commits
}

// New creates a chunk with the given capacity, content zero-initialized.
func New(capacity int32) (*Chunk, error) {
	if capacity < 0 || capacity > MaxAllowedCapacity {
		return nil, fmt.Errorf("chunk: capacity %d out of range", capacity)
	}
	return &Chunk{content: make([]byte, capacity), capacity: capacity}, nil
}

// Size returns the chunk's current logical size.
func (c *Chunk) Size() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Capacity returns the chunk's current allocated capacity.
func (c *Chunk) Capacity() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capacity
}

// IsWritable reports whether this chunk belongs to a writable access.
func (c *Chunk) IsWritable() bool { return c.writable.Load() }

// SetWritable marks the chunk writable or read-only for the current access.
func (c *Chunk) SetWritable(w bool) { c.writable.Store(w) }

// Pointer is a bounds-checked view into a chunk's content at a fixed
// offset, valid only while held.
type Pointer struct {
	chunk  *Chunk
	offset int32
	size   int32
}

// Get returns the underlying byte slice for this pointer, or an error if
// the requested access size would read past the end of the range the
// pointer was created for.
func (p Pointer) Get(accessSize int32) ([]byte, error) {
	if p.chunk == nil {
		return nil, fmt.Errorf("chunk: nil pointer")
	}
	if p.offset+accessSize > p.size {
		return nil, fmt.Errorf("chunk: out of allocated memory range")
	}
	return p.chunk.content[p.offset : p.offset+accessSize], nil
}

// ContentPointer returns a Pointer into offset..offset+size, validating
// that the range lies within the chunk's current capacity.
func (c *Chunk) ContentPointer(offset, size int32) (Pointer, error) {
	if offset < 0 || size < 0 {
		return Pointer{}, fmt.Errorf("chunk: negative offset or size")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if offset+size > c.capacity {
		return Pointer{}, fmt.Errorf("chunk: out of allocated memory range")
	}
	return Pointer{chunk: c, offset: offset, size: offset + size}, nil
}

// SetSize changes the chunk's logical size within its current capacity.
// Bytes beyond the new size are zeroed so that a later re-grow never
// exposes stale content, matching the "offsets beyond chunkSize are always
// zero" invariant.
func (c *Chunk) SetSize(newSize int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if newSize < 0 || newSize > c.capacity {
		return fmt.Errorf("chunk: size %d out of capacity %d", newSize, c.capacity)
	}
	if newSize < c.size {
		for i := newSize; i < c.size; i++ {
			c.content[i] = 0
		}
	}
	c.size = newSize
	return nil
}

// Resize reallocates the chunk's backing array to newCapacity, preserving
// existing content. Growing zero-fills the new tail.
func (c *Chunk) Resize(newCapacity int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resizeLocked(newCapacity)
}

func (c *Chunk) resizeLocked(newCapacity int32) error {
	if newCapacity < 0 || newCapacity > MaxAllowedCapacity {
		return fmt.Errorf("chunk: capacity %d out of range", newCapacity)
	}
	next := make([]byte, newCapacity)
	copy(next, c.content[:min32(c.size, newCapacity)])
	c.content = next
	c.capacity = newCapacity
	if c.size > newCapacity {
		c.size = newCapacity
	}
	return nil
}

// ReserveSpace grows the chunk's capacity to newCapacity if larger than the
// current one. It is the only resize permitted outside of block execution
// (pre-block index preparation).
func (c *Chunk) ReserveSpace(newCapacity int32) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if newCapacity > MaxAllowedCapacity || newCapacity < 0 {
		return false, fmt.Errorf("chunk: capacity %d out of range", newCapacity)
	}
	if newCapacity <= c.capacity {
		return false, nil
	}
	return true, c.resizeLocked(newCapacity)
}

// ShrinkSpace reallocates the chunk down to exactly its current size,
// discarding trailing unused capacity.
func (c *Chunk) ShrinkSpace() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.size == c.capacity {
		return false, nil
	}
	return true, c.resizeLocked(c.size)
}

// ContentMutex exposes the per-chunk mutex that must be held while
// performing an additive or size-changing commit against live content, to
// serialize concurrent workers committing against the same chunk.
func (c *Chunk) ContentMutex() *sync.Mutex { return &c.contentMu }

// Digest returns the SHA3-256 digest of the chunk's logical content
// (offset 0..size), used by the page layer to build the page-wide digest.
// It hashes the little-endian size word ahead of the content bytes, the
// same way calculateDigest does, so a resize alone (with identical
// surviving bytes) still changes the digest.
func (c *Chunk) Digest() ids.Digest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	buf := make([]byte, 4+c.size)
	binary.LittleEndian.PutUint32(buf, uint32(c.size))
	copy(buf[4:], c.content[:c.size])
	return ids.Sum(buf)
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
