// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"fmt"
	"sort"

	"github.com/luxfi/execore/heap"
)

// accessBlockInfo is one request's declared access to a chunk offset,
// flattened out of its per-chunk RawChunkAccess for the purposes of
// collision verification.
type accessBlockInfo struct {
	requestID RequestID
	offset    int32
	size      uint32
	mode      heap.AccessMode
}

// typeRank orders access modes for the collision sweep's tie-break, fixed
// independently of AccessMode's own numbering: check_only < writable <
// read_only < int_additive.
func typeRank(m heap.AccessMode) int {
	switch m {
	case heap.AccessCheckOnly:
		return 0
	case heap.AccessWritable:
		return 1
	case heap.AccessReadOnly:
		return 2
	case heap.AccessAdditive:
		return 3
	default:
		return 4
	}
}

// collides reports whether two accesses to the same bytes require a
// declared ordering edge between their requests: check_only never
// collides; two read-only accesses never collide; two additive accesses
// never collide, since accumulation commutes regardless of order; every
// other pairing -- writable against read, write, or additive, or additive
// against read or write -- does.
func collides(a, b heap.AccessMode) bool {
	if a == heap.AccessCheckOnly || b == heap.AccessCheckOnly {
		return false
	}
	if a == heap.AccessReadOnly && b == heap.AccessReadOnly {
		return false
	}
	if a == heap.AccessAdditive && b == heap.AccessAdditive {
		return false
	}
	return true
}

// findCollisionCliques verifies the proposer's dependency graph against
// every pair of accesses to the same chunk whose byte ranges overlap and
// whose modes collide. Accesses are swept in ascending (offset, type
// rank, request id) order; for each block i, every later block j
// beginning before i's end is checked against i, mirroring the original
// findCollisions swept over sortedOffsets.
func findCollisionCliques(dag map[RequestID]*DagNode, accesses []accessBlockInfo) error {
	sort.SliceStable(accesses, func(i, j int) bool {
		if accesses[i].offset != accesses[j].offset {
			return accesses[i].offset < accesses[j].offset
		}
		if ri, rj := typeRank(accesses[i].mode), typeRank(accesses[j].mode); ri != rj {
			return ri < rj
		}
		return accesses[i].requestID < accesses[j].requestID
	})

	for i, a := range accesses {
		end := a.offset + int32(a.size)
		if a.offset < 0 {
			end = 0
		}
		for j := i + 1; j < len(accesses) && accesses[j].offset < end; j++ {
			b := accesses[j]
			if b.requestID == a.requestID {
				continue
			}
			if !collides(a.mode, b.mode) {
				continue
			}
			if err := requireEdge(dag, a.requestID, b.requestID); err != nil {
				return err
			}
		}
	}
	return nil
}

// requireEdge checks that u and v are connected by a declared DAG edge
// (stored on the lower-numbered node, as finalizeRequest only ever
// propagates edges forward to higher ids).
func requireEdge(dag map[RequestID]*DagNode, u, v RequestID) error {
	if u == v {
		return nil
	}
	if u > v {
		u, v = v, u
	}
	node, ok := dag[u]
	if !ok || !node.IsAdjacent(v) {
		return fmt.Errorf("scheduler: missing an edge {%d,%d} in the dependency graph", u, v)
	}
	return nil
}

// findResizingCollisions verifies that every request touching bytes beyond
// a chunk's declared lower size bound has a declared edge against every
// request that resizes the chunk in a way that could invalidate that
// access (shrinking below, or capping growth below, the accessed range).
func findResizingCollisions(dag map[RequestID]*DagNode, accesses []accessBlockInfo, sizeLowerBound uint32) error {
	sort.SliceStable(accesses, func(i, j int) bool { return accesses[i].offset < accesses[j].offset })

	var resizers []accessBlockInfo
	for _, a := range accesses {
		if a.offset < 0 {
			resizers = append(resizers, a)
		}
	}
	if len(resizers) == 0 {
		return nil
	}

	for _, a := range accesses {
		if a.offset < 0 {
			continue
		}
		end := uint32(a.offset) + a.size
		if end <= sizeLowerBound {
			continue
		}
		for _, r := range resizers {
			if r.requestID == a.requestID {
				continue
			}
			newSize := int32(r.size)
			var resizeCollides bool
			if newSize > 0 {
				resizeCollides = a.offset < newSize
			} else {
				resizeCollides = end > uint32(-newSize)
			}
			if resizeCollides {
				if err := requireEdge(dag, a.requestID, r.requestID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
