// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chunk

import (
	"bytes"
	"fmt"

	"github.com/luxfi/execore/ids"
)

// Delta is the wire form of a chunk mutation: a varint-coded XOR of the
// pre- and post-delta sizes followed by a sequence of (offset, block) XOR patches. It is
// self-inverse -- applying the same delta twice restores the original
// content, which lets a failed digest check be undone without a full
// content copy.
type Delta struct {
	Raw []byte
}

func readVarSize(buf []byte) (value int32, n int, err error) {
	v, n, err := varSizeTrie.DecodeUint(buf, varSizeTrie.Height())
	if err != nil {
		return 0, 0, fmt.Errorf("chunk: malformed delta varint: %w", err)
	}
	return int32(v), n, nil
}

// fastXOR computes x[0:size] ^= a[0:size].
func fastXOR(x, a []byte) {
	for i := range x {
		x[i] ^= a[i]
	}
}

// ApplyDeltaReversible XORs delta into the chunk content and sets the
// chunk's size to its current size XOR the delta's encoded size, without
// shrinking capacity.
// Calling it twice in a row with the same delta is a no-op on content.
func (c *Chunk) ApplyDeltaReversible(delta []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	encodedSize, n, err := readVarSize(delta)
	if err != nil {
		return err
	}
	delta = delta[n:]
	size := c.size ^ encodedSize
	if size < 0 || size > MaxAllowedCapacity {
		return fmt.Errorf("chunk: delta encodes invalid size %d", size)
	}
	if size > c.capacity {
		if err := c.resizeLocked(size); err != nil {
			return err
		}
	}

	var offset int32
	for len(delta) > 0 {
		off, n, err := readVarSize(delta)
		if err != nil {
			return err
		}
		delta = delta[n:]
		offset += off

		blockSize, n, err := readVarSize(delta)
		if err != nil {
			return err
		}
		delta = delta[n:]

		xorSize := blockSize
		if offset+blockSize > size {
			if offset < size {
				xorSize = size - offset
			} else {
				break
			}
		}
		if blockSize < 0 || int(blockSize) > len(delta) {
			return fmt.Errorf("chunk: delta block exceeds buffer")
		}
		fastXOR(c.content[offset:offset+xorSize], delta[:xorSize])
		delta = delta[blockSize:]
		offset += blockSize
	}
	c.size = size
	return nil
}

// ApplyDelta applies delta, checks the resulting content against
// expectedDigest, and shrinks the chunk's capacity down to its new size on
// success. On a digest mismatch it reverts by re-applying the same delta
// (XOR is self-inverse), shrinks, and returns an error -- the chunk is left
// exactly as it was before the call.
func (c *Chunk) ApplyDelta(expectedDigest ids.Digest, delta []byte) error {
	if err := c.ApplyDeltaReversible(delta); err != nil {
		return err
	}
	if c.Digest() != expectedDigest {
		if err := c.ApplyDeltaReversible(delta); err != nil {
			return err
		}
		if _, err := c.ShrinkSpace(); err != nil {
			return err
		}
		return fmt.Errorf("chunk: incorrect chunk delta")
	}
	_, err := c.ShrinkSpace()
	return err
}

// EncodeDelta produces the reversible XOR delta that transforms prev into
// next, in the wire format ApplyDelta/ApplyDeltaReversible consume. It is
// primarily used by tests and by a proposer-side component that is out of
// this package's scope, but lives here because it must stay byte-compatible
// with the decoder above.
func EncodeDelta(prev, next []byte) ([]byte, error) {
	var buf bytes.Buffer
	sizeCode := int32(len(prev)) ^ int32(len(next))
	tmp := make([]byte, varSizeTrie.Height())
	n, err := varSizeTrie.EncodeUint(uint64(sizeCode), tmp)
	if err != nil {
		return nil, err
	}
	buf.Write(tmp[:n])

	maxLen := len(prev)
	if len(next) > maxLen {
		maxLen = len(next)
	}
	padded := func(b []byte) []byte {
		if len(b) == maxLen {
			return b
		}
		p := make([]byte, maxLen)
		copy(p, b)
		return p
	}
	a, b := padded(prev), padded(next)

	var lastOffset int32
	offset := int32(0)
	for offset < int32(maxLen) {
		if a[offset] == b[offset] {
			offset++
			continue
		}
		start := offset
		for offset < int32(maxLen) && a[offset] != b[offset] {
			offset++
		}
		blockSize := offset - start

		n, err := varSizeTrie.EncodeUint(uint64(start-lastOffset), tmp)
		if err != nil {
			return nil, err
		}
		buf.Write(tmp[:n])
		n, err = varSizeTrie.EncodeUint(uint64(blockSize), tmp)
		if err != nil {
			return nil, err
		}
		buf.Write(tmp[:n])

		block := make([]byte, blockSize)
		for i := int32(0); i < blockSize; i++ {
			block[i] = a[start+i] ^ b[start+i]
		}
		buf.Write(block)
		lastOffset = offset
	}
	return buf.Bytes(), nil
}
