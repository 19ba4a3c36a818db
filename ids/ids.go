// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids defines the fixed-width identifier and digest types shared by
// every execore component: application/method identifiers addressed through
// the prefix-trie codec, and content digests computed over chunks, pages,
// and response lists.
package ids

import (
	"encoding/hex"
	"fmt"

	luxids "github.com/luxfi/ids"
	"golang.org/x/crypto/sha3"
)

// Digest is a 32-byte SHA3-256 content digest. It is an alias of the
// teacher stack's content-addressed ID type, repurposed here for chunk,
// page, and response digests instead of node/transaction identifiers.
type Digest = luxids.ID

// ZeroDigest is the digest of the empty byte string.
var ZeroDigest = Sum(nil)

// Sum computes the SHA3-256 digest of data.
func Sum(data []byte) Digest {
	return Digest(sha3.Sum256(data))
}

// LongID is a 64-bit application/identifier value, addressed through the
// prefix-trie codec (see package prefixtrie).
type LongID uint64

func (id LongID) String() string {
	return fmt.Sprintf("%#016x", uint64(id))
}

// LongLongID is a 128-bit identifier formed by concatenating two LongIDs,
// used to address a chunk within an application's access map as
// (accountID, localID).
type LongLongID [16]byte

func NewLongLongID(high, low LongID) LongLongID {
	var id LongLongID
	for i := 0; i < 8; i++ {
		id[i] = byte(high >> (56 - 8*i))
		id[8+i] = byte(low >> (56 - 8*i))
	}
	return id
}

func (id LongLongID) High() LongID {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(id[i])
	}
	return LongID(v)
}

func (id LongLongID) Low() LongID {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(id[8+i])
	}
	return LongID(v)
}

func (id LongLongID) String() string {
	return fmt.Sprintf("%s.%s", id.High(), id.Low())
}

// FullID addresses a specific chunk within an application's heap:
// (appID, chunkID).
type FullID struct {
	AppID   LongID
	ChunkID LongID
}

func (id FullID) String() string {
	return fmt.Sprintf("%s/%s", id.AppID, id.ChunkID)
}

// VarLenFullID is a FullID together with the variable-length encoded form
// of its ChunkID, as produced by the prefix-trie codec; it is the unit
// addressed by an access block.
type VarLenFullID struct {
	AppID   LongID
	ChunkID []byte
}

func (id VarLenFullID) String() string {
	return fmt.Sprintf("%s/%s", id.AppID, hex.EncodeToString(id.ChunkID))
}
