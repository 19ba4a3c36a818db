// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package heap implements the versioned heap modifier: a typed, bounds
// checked view over a set of chunks that records every write as a
// version-stamped overlay instead of mutating chunk content directly, so a
// failed or reentrant invocation can be rolled back with restoreVersion
// instead of undoing byte writes one at a time.
package heap

import (
	"fmt"

	"github.com/luxfi/execore/chunk"
)

// AccessMode controls which operations an access block permits.
type AccessMode int

const (
	// AccessNone marks a sentinel, non-accessible declaration (a negative
	// offset in the request's access map). It denies every operation,
	// including the "is this block even defined" check.
	AccessNone AccessMode = iota
	// AccessCheckOnly declares a block as existing without granting read
	// or write access to it -- read<T> must reject it the same way it
	// rejects an undeclared offset, but Defined still reports true.
	AccessCheckOnly
	AccessReadOnly
	AccessWritable
	// AccessAdditive permits only commutative integer accumulation via
	// AddInt; plain Store is denied.
	AccessAdditive
)

func (m AccessMode) defined() bool       { return m != AccessNone }
func (m AccessMode) mayRead() bool       { return m != AccessNone && m != AccessCheckOnly }
func (m AccessMode) mayWrite() bool      { return m == AccessWritable || m == AccessAdditive }
func (m AccessMode) mayPlainWrite() bool { return m == AccessWritable }
func (m AccessMode) isAdditive() bool    { return m == AccessAdditive }

type version struct {
	number  int16
	content []byte
}

// AccessBlock is a declared, size-bounded window into one chunk offset (or,
// for the synthetic chunk-size pseudo-block, into a private in-memory
// buffer). Every write made through it is recorded against the modifier's
// currentVersion and never touches the backing storage until WriteToHeap
// commits it.
type AccessBlock struct {
	backing  []byte // nil for AccessNone sentinels
	size     uint32
	mode     AccessMode
	versions []version
}

func newAccessBlock(backing []byte, size uint32, mode AccessMode) *AccessBlock {
	return &AccessBlock{backing: backing, size: size, mode: mode}
}

// Defined reports whether this block exists and declares at least
// requiredSize bytes of access.
func (b *AccessBlock) Defined(requiredSize uint32) bool {
	return b.mode.defined() && b.size >= requiredSize
}

// Size returns the block's declared size in bytes.
func (b *AccessBlock) Size() uint32 { return b.size }

func (b *AccessBlock) syncTo(v int16) {
	for len(b.versions) > 0 && b.versions[len(b.versions)-1].number > v {
		b.versions = b.versions[:len(b.versions)-1]
	}
}

// ensureExists makes sure a version entry exists for v, cloning from the
// latest prior content. It returns true if a new entry was created.
func (b *AccessBlock) ensureExists(v int16) bool {
	if len(b.versions) > 0 {
		last := &b.versions[len(b.versions)-1]
		if last.number == v {
			return false
		}
	}
	content := make([]byte, b.size)
	if len(b.versions) > 0 {
		copy(content, b.versions[len(b.versions)-1].content)
	} else {
		copy(content, b.backing)
	}
	b.versions = append(b.versions, version{number: v, content: content})
	return true
}

func (b *AccessBlock) prepareToRead(v int16, offset, readSize uint32) ([]byte, error) {
	if offset+readSize > b.size {
		return nil, fmt.Errorf("heap: out of block read")
	}
	if !b.mode.mayRead() {
		return nil, fmt.Errorf("heap: access block is not readable")
	}
	b.syncTo(v)
	if len(b.versions) == 0 {
		return b.backing[offset : offset+readSize], nil
	}
	c := b.versions[len(b.versions)-1].content
	return c[offset : offset+readSize], nil
}

func (b *AccessBlock) prepareToWrite(v int16, offset, writeSize uint32) ([]byte, error) {
	if offset+writeSize > b.size {
		return nil, fmt.Errorf("heap: out of block write")
	}
	if !b.mode.mayPlainWrite() {
		return nil, fmt.Errorf("heap: access block is not writable")
	}
	b.syncTo(v)
	b.ensureExists(v)
	c := b.versions[len(b.versions)-1].content
	return c[offset : offset+writeSize], nil
}

// addInt adds delta (little-endian encoded, len(delta) == b.size) onto the
// latest version's content, creating one if needed. It requires an
// additive access block whose size matches the integer width being added.
func (b *AccessBlock) addInt(v int16, delta []byte) error {
	if uint32(len(delta)) != b.size {
		return fmt.Errorf("heap: addInt size mismatch")
	}
	if !b.mode.isAdditive() {
		return fmt.Errorf("heap: block is not additive")
	}
	b.syncTo(v)
	current := make([]byte, b.size)
	if len(b.versions) > 0 {
		copy(current, b.versions[len(b.versions)-1].content)
	}
	sum := addLittleEndian(current, delta)
	b.ensureExists(v)
	copy(b.versions[len(b.versions)-1].content, sum)
	return nil
}

// wrToHeap commits this block's latest version (as of v) into target,
// writing at most maxWriteSize bytes. Additive blocks fold their delta
// into the live heap value under target's content mutex, since two
// requests writing additively to the same chunk may commit concurrently.
func (b *AccessBlock) wrToHeap(target *chunk.Chunk, v int16, maxWriteSize uint32) error {
	b.syncTo(v)
	if len(b.versions) == 0 {
		return nil
	}
	latest := b.versions[len(b.versions)-1].content

	if b.mode.isAdditive() {
		readSize := b.size
		if readSize > 8 {
			readSize = 8
		}
		writeSize := readSize
		if maxWriteSize < writeSize {
			writeSize = maxWriteSize
		}
		mu := target.ContentMutex()
		mu.Lock()
		defer mu.Unlock()
		sum := addLittleEndian(b.backing[:readSize], latest[:readSize])
		copy(b.backing[:writeSize], sum[:writeSize])
		return nil
	}

	writeSize := b.size
	if maxWriteSize < writeSize {
		writeSize = maxWriteSize
	}
	copy(b.backing[:writeSize], latest[:writeSize])
	return nil
}

func addLittleEndian(a, delta []byte) []byte {
	var av, dv uint64
	for i := len(a) - 1; i >= 0; i-- {
		av = av<<8 | uint64(a[i])
	}
	for i := len(delta) - 1; i >= 0; i-- {
		dv = dv<<8 | uint64(delta[i])
	}
	sum := av + dv
	out := make([]byte, len(a))
	for i := range out {
		out[i] = byte(sum)
		sum >>= 8
	}
	return out
}
