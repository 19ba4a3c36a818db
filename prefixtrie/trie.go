// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package prefixtrie implements the variable-length prefix-code table used
// to encode both dotted application/method identifiers and small unsigned
// integers (delta offsets, version counters) into a compact self-delimiting
// byte form.
package prefixtrie

import (
	"fmt"
	"strconv"
	"strings"
)

// Trie is a height-level prefix code over an unsigned integer domain of
// width bitWidth bits. Each level i owns count[i] consecutive codes; a code
// belongs to level i when it is smaller than boundary[i], the first level
// whose boundary is not exceeded decides the encoded length.
type Trie struct {
	height   int
	bitWidth int
	boundary []uint64
	count    []uint64
}

// New builds a Trie from a table of per-level leading byte values, one per
// level, most significant level first. table[i] is shifted into the high
// byte of level i's boundary, mirroring the C byte-array layout the codec
// was originally specified with.
func New(table []byte) (*Trie, error) {
	height := len(table)
	if height == 0 || height > 8 {
		return nil, fmt.Errorf("prefixtrie: height must be in [1,8], got %d", height)
	}
	bitWidth := height * 8
	t := &Trie{
		height:   height,
		bitWidth: bitWidth,
		boundary: make([]uint64, height),
		count:    make([]uint64, height),
	}
	for i := 0; i < height; i++ {
		t.boundary[i] = uint64(table[i]) << uint((height-1)*8)
		if i > 0 && t.boundary[i-1] > t.boundary[i] {
			return nil, fmt.Errorf("prefixtrie: malformed trie table at level %d", i)
		}
	}
	t.count[0] = uint64(table[0])
	for i := 1; i < height; i++ {
		t.count[i] = (t.boundary[i] - t.boundary[i-1]) >> uint((height-i-1)*8)
	}
	return t, nil
}

// Height returns the maximum number of encoded bytes.
func (t *Trie) Height() int { return t.height }

// ReadPrefixCode reads the shortest self-delimiting code at the head of
// binary and returns its raw value (the big-endian integer formed by the
// bytes consumed, not yet mapped into the dense [0, total) range) and the
// number of bytes consumed. maxLength caps how many bytes may be read.
func (t *Trie) ReadPrefixCode(binary []byte, maxLength int) (value uint64, n int, err error) {
	if maxLength > t.height || maxLength <= 0 {
		maxLength = t.height
	}
	if len(binary) < maxLength {
		maxLength = len(binary)
	}
	var id uint64
	for i := 0; i < maxLength; i++ {
		id |= uint64(binary[i]) << uint((t.height-i-1)*8)
		if id < t.boundary[i] {
			return id, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("prefixtrie: invalid or truncated code")
}

// EncodeUint encodes value (a dense index into [0, total capacity)) into
// buffer, returning the number of bytes written.
func (t *Trie) EncodeUint(value uint64, buffer []byte) (int, error) {
	var sum uint64
	for i := 0; i < t.height; i++ {
		sum += t.count[i]
		if value < sum {
			bound := t.boundary[i] >> uint((t.height-i-1)*8)
			code := bound - (sum - value)
			n := i + 1
			if len(buffer) < n {
				return 0, fmt.Errorf("prefixtrie: buffer too small")
			}
			for j := 0; j < n; j++ {
				buffer[j] = byte(code >> uint((n-j-1)*8))
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("prefixtrie: value %d too large to encode", value)
}

// DecodeUint decodes the dense index value encoded at the head of binary,
// returning the value and the number of bytes consumed.
func (t *Trie) DecodeUint(binary []byte, maxLength int) (value uint64, n int, err error) {
	code, n, err := t.ReadPrefixCode(binary, maxLength)
	if err != nil {
		return 0, 0, err
	}
	code >>= uint((t.height - n) * 8)

	var sum uint64
	for i := 0; i < n; i++ {
		sum += t.count[i]
	}
	bound := t.boundary[n-1] >> uint((t.height-n)*8)
	return sum + code - bound, n, nil
}

// ReadIdentifier reads one identifier code at the head of binary and
// returns the same raw value and byte count ReadPrefixCode does (the value
// is not mapped into the dense range), matching the original codec's
// readIdentifier.
func (t *Trie) ReadIdentifier(binary []byte, maxLength int) (id uint64, n int, err error) {
	return t.ReadPrefixCode(binary, maxLength)
}

// ParseIdentifier parses a dot-separated decimal identifier, such as
// "1.20.3", into its encoded byte form.
func (t *Trie) ParseIdentifier(symbolic string) ([]byte, error) {
	parts := strings.Split(symbolic, ".")
	if len(parts) > t.height {
		return nil, fmt.Errorf("prefixtrie: identifier %q has too many components", symbolic)
	}
	buf := make([]byte, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("prefixtrie: invalid identifier component %q: %w", p, err)
		}
		if v > 255 {
			return nil, fmt.Errorf("prefixtrie: identifier component %q overflows a byte", p)
		}
		buf[i] = byte(v)
	}
	_, n, err := t.ReadPrefixCode(buf, len(buf))
	if err != nil {
		return nil, err
	}
	if n != len(buf) {
		return nil, fmt.Errorf("prefixtrie: identifier %q decodes shorter than written", symbolic)
	}
	return buf, nil
}
