// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"context"
	"testing"

	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/index"
	"github.com/luxfi/execore/page"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(nodes map[RequestID]*DagNode) *Scheduler {
	return &Scheduler{nodes: nodes, remaining: int32(len(nodes))}
}

func link(from *DagNode, to RequestID) {
	from.adjacent[to] = struct{}{}
}

func TestBuildExecDagDrainsInOrder(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0}, nil)
	b := newDagNode(AppRequest{ID: 1}, nil)
	c := newDagNode(AppRequest{ID: 2}, nil)
	link(a, 1)
	link(b, 2)
	s := newTestScheduler(map[RequestID]*DagNode{0: a, 1: b, 2: c})
	s.FinalizeRequest(0)
	s.FinalizeRequest(1)
	s.FinalizeRequest(2)
	require.NoError(t, s.BuildExecDag())

	ctx := context.Background()
	got := []RequestID{}
	for {
		req, err := s.NextRequest(ctx)
		require.NoError(t, err)
		if req == nil {
			break
		}
		got = append(got, req.ID)
		require.NoError(t, s.SubmitResult(AppResponse{RequestID: req.ID, StatusCode: 200}))
	}
	require.Equal(t, []RequestID{0, 1, 2}, got)
}

func TestBuildExecDagRejectsCycle(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0}, nil)
	b := newDagNode(AppRequest{ID: 1}, nil)
	link(a, 1)
	link(b, 0)
	s := newTestScheduler(map[RequestID]*DagNode{0: a, 1: b})
	s.FinalizeRequest(0)
	s.FinalizeRequest(1)
	require.Error(t, s.BuildExecDag())
}

func TestSubmitResultRejectsFailedAttachment(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0, Attachments: []RequestID{1}}, nil)
	s := newTestScheduler(map[RequestID]*DagNode{0: a})
	s.FinalizeRequest(0)
	require.NoError(t, s.BuildExecDag())
	require.Error(t, s.SubmitResult(AppResponse{RequestID: 0, StatusCode: 500}))
}

func TestFindCollisionCliquesRequiresEdgeForEveryCollidingPair(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0}, nil)
	b := newDagNode(AppRequest{ID: 1}, nil)
	c := newDagNode(AppRequest{ID: 2}, nil)
	dag := map[RequestID]*DagNode{0: a, 1: b, 2: c}

	accesses := []accessBlockInfo{
		{requestID: 0, offset: 0, size: 4, mode: heap.AccessWritable},
		{requestID: 1, offset: 2, size: 4, mode: heap.AccessWritable},
		{requestID: 2, offset: 3, size: 4, mode: heap.AccessWritable},
	}
	require.Error(t, findCollisionCliques(dag, append([]accessBlockInfo(nil), accesses...)))

	// 0 and 2 both overlap 1, but also overlap each other ([0,4) vs
	// [3,7)), so a chain 0-1-2 is not enough: every colliding pair needs
	// its own declared edge.
	link(a, 1)
	link(b, 2)
	require.Error(t, findCollisionCliques(dag, append([]accessBlockInfo(nil), accesses...)))

	link(a, 2)
	require.NoError(t, findCollisionCliques(dag, append([]accessBlockInfo(nil), accesses...)))
}

func TestFindCollisionCliquesAdditiveDoesNotCollideWithAdditive(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0}, nil)
	b := newDagNode(AppRequest{ID: 1}, nil)
	dag := map[RequestID]*DagNode{0: a, 1: b}

	accesses := []accessBlockInfo{
		{requestID: 0, offset: 0, size: 8, mode: heap.AccessAdditive},
		{requestID: 1, offset: 0, size: 8, mode: heap.AccessAdditive},
	}
	require.NoError(t, findCollisionCliques(dag, accesses))
}

func TestFindCollisionCliquesReadOnlyBelowWritableAboveRequiresEdge(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0}, nil)
	b := newDagNode(AppRequest{ID: 1}, nil)
	dag := map[RequestID]*DagNode{0: a, 1: b}

	accesses := []accessBlockInfo{
		{requestID: 0, offset: 0, size: 10, mode: heap.AccessReadOnly},
		{requestID: 1, offset: 4, size: 4, mode: heap.AccessWritable},
	}
	require.Error(t, findCollisionCliques(dag, append([]accessBlockInfo(nil), accesses...)))

	link(a, 1)
	require.NoError(t, findCollisionCliques(dag, append([]accessBlockInfo(nil), accesses...)))
}

func TestFindResizingCollisionsRequiresEdge(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0}, nil)
	b := newDagNode(AppRequest{ID: 1}, nil)
	dag := map[RequestID]*DagNode{0: a, 1: b}

	accesses := []accessBlockInfo{
		{requestID: 0, offset: -1, size: uint32(int32(-8))}, // shrinks to 8
		{requestID: 1, offset: 10, size: 4, mode: heap.AccessReadOnly},
	}
	require.Error(t, findResizingCollisions(dag, accesses, 0))

	link(a, 1)
	require.NoError(t, findResizingCollisions(dag, append([]accessBlockInfo(nil), accesses...), 0))
}

func TestCheckDependencyGraphRejectsUndeclaredCollision(t *testing.T) {
	a := newDagNode(AppRequest{ID: 0}, nil)
	b := newDagNode(AppRequest{ID: 1}, nil)
	idx, err := index.New(map[ids.FullID]*page.Page{}, map[ids.FullID]index.SizeBounds{})
	require.NoError(t, err)
	s := &Scheduler{index: idx, nodes: map[RequestID]*DagNode{0: a, 1: b}}

	chunk := ids.FullID{AppID: 1, ChunkID: 2}
	perChunk := map[ids.FullID][]ChunkAccess{
		chunk: {
			{RequestID: 0, Offset: 0, Size: 4, Mode: heap.AccessWritable},
			{RequestID: 1, Offset: 2, Size: 4, Mode: heap.AccessWritable},
		},
	}
	require.Error(t, s.CheckDependencyGraph(context.Background(), perChunk))

	link(a, 1)
	require.NoError(t, s.CheckDependencyGraph(context.Background(), perChunk))
}
