// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package page groups chunks by the storage page that backs them: each
// page owns one native chunk (the application that page belongs to) and
// zero or more migrant chunks temporarily homed there because their native
// page hasn't been split out yet.
package page

import (
	"fmt"

	"github.com/luxfi/execore/chunk"
	"github.com/luxfi/execore/ids"
)

// Page is the unit of persistent storage loaded and committed as a whole.
// It is not itself thread-safe: callers serialize access to a page through
// the block-wide access map built by package index.
type Page struct {
	blockNumber int64
	writable    bool
	native      *chunk.Chunk
	migrants    map[ids.FullID]*chunk.Chunk
}

// New creates an empty page stamped with the block number it was loaded
// for; its native chunk starts at zero capacity.
func New(blockNumber int64) (*Page, error) {
	native, err := chunk.New(0)
	if err != nil {
		return nil, err
	}
	return &Page{
		blockNumber: blockNumber,
		native:      native,
		migrants:    make(map[ids.FullID]*chunk.Chunk),
	}, nil
}

// BlockNumber returns the block this page's content was last synchronized
// to.
func (p *Page) BlockNumber() int64 { return p.blockNumber }

// Native returns this page's native chunk.
func (p *Page) Native() *chunk.Chunk { return p.native }

// Migrants returns the page's migrant chunks, keyed by their true owning
// application/chunk id.
func (p *Page) Migrants() map[ids.FullID]*chunk.Chunk { return p.migrants }

// AddMigrant homes a chunk that does not natively belong to this page. It
// is an error to add a migrant for an id the page already holds.
func (p *Page) AddMigrant(id ids.FullID, c *chunk.Chunk) error {
	if _, exists := p.migrants[id]; exists {
		return fmt.Errorf("page: migrant %s already present", id)
	}
	p.migrants[id] = c
	return nil
}

// ExtractChunk removes and returns a migrant chunk, transferring it to its
// true native page. It reports false if no such migrant is homed here.
func (p *Page) ExtractChunk(id ids.FullID) (*chunk.Chunk, bool) {
	c, ok := p.migrants[id]
	if ok {
		delete(p.migrants, id)
	}
	return c, ok
}

// SetWritableFlag propagates a writable/read-only flag to the native chunk
// and every migrant this page currently holds.
func (p *Page) SetWritableFlag(writable bool) {
	p.writable = writable
	p.native.SetWritable(writable)
	for _, m := range p.migrants {
		m.SetWritable(writable)
	}
}

// Digest returns a digest over the native chunk and every migrant, sorted
// by id so the result is deterministic regardless of map iteration order.
func (p *Page) Digest() ids.Digest {
	h := p.native.Digest()
	ids2 := make([]ids.FullID, 0, len(p.migrants))
	for id := range p.migrants {
		ids2 = append(ids2, id)
	}
	sortFullIDs(ids2)
	for _, id := range ids2 {
		m := p.migrants[id].Digest()
		combined := append(append([]byte{}, h[:]...), m[:]...)
		h = ids.Sum(combined)
	}
	return h
}

func sortFullIDs(s []ids.FullID) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func less(a, b ids.FullID) bool {
	if a.AppID != b.AppID {
		return a.AppID < b.AppID
	}
	return a.ChunkID < b.ChunkID
}
