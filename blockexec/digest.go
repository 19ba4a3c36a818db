// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockexec

import (
	"encoding/binary"

	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/scheduler"
)

// ResponseListDigest computes the aggregate digest a block's proposer
// commits to: the SHA3-256 of every response's request id, status code,
// and body, concatenated in ascending request-id order. responses must
// already be sorted by RequestID. A block proposer calls this directly to
// compute the value it declares; Validate calls it again independently to
// check the proposer's claim.
func ResponseListDigest(responses []scheduler.AppResponse) ids.Digest {
	var buf []byte
	var idBuf [4]byte
	var statusBuf [4]byte
	for _, r := range responses {
		binary.BigEndian.PutUint32(idBuf[:], uint32(r.RequestID))
		binary.BigEndian.PutUint32(statusBuf[:], uint32(r.StatusCode))
		buf = append(buf, idBuf[:]...)
		buf = append(buf, statusBuf[:]...)
		buf = append(buf, r.Body...)
	}
	return ids.Sum(buf)
}
