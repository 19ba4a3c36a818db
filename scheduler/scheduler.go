// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/index"
	"golang.org/x/sync/errgroup"
)

// Loader is the collaborator a Scheduler pulls a block's raw requests
// from. It is out of this module's scope -- a real implementation reads
// the block body and the proposer's declared access/dependency metadata.
type Loader interface {
	RequestCount(ctx context.Context) (int32, error)
	LoadRequest(ctx context.Context, id RequestID) (RawRequest, error)
}

// Scheduler loads, verifies, and schedules one block's requests for
// execution. It is built once per block and discarded after the block
// commits or is rejected.
type Scheduler struct {
	index *index.Index

	// mu guards nodes and remaining once BuildExecDag opens the ready
	// queue: LoadRequests, FinalizeRequest, and BuildExecDag itself all
	// run before any worker calls SubmitResult, so they need no locking
	// of their own, but SubmitResult runs concurrently from every worker
	// in the pool and both deletes from nodes and decrements remaining.
	mu sync.Mutex

	nodes map[RequestID]*DagNode

	readyQueue chan *DagNode
	remaining  int32
}

// New creates a Scheduler that will resolve chunk accesses through idx.
func New(idx *index.Index) *Scheduler {
	return &Scheduler{
		index: idx,
		nodes: make(map[RequestID]*DagNode),
	}
}

// LoadRequests pulls every request in the block through loader, resolves
// its declared access map into a live heap.Modifier, and indexes it as a
// DAG node. Requests are loaded concurrently since resolving one
// request's access map is independent of every other's until
// FinalizeRequest links the graph together.
func (s *Scheduler) LoadRequests(ctx context.Context, loader Loader) error {
	count, err := loader.RequestCount(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]*DagNode, count)
	for i := int32(0); i < count; i++ {
		id := RequestID(i)
		g.Go(func() error {
			raw, err := loader.LoadRequest(gctx, id)
			if err != nil {
				return fmt.Errorf("scheduler: loading request %d: %w", id, err)
			}
			modifier, err := s.index.BuildModifier(raw.AccessMap)
			if err != nil {
				return fmt.Errorf("scheduler: request %d: %w", id, err)
			}
			results[id] = newDagNode(AppRequest{
				ID:             raw.ID,
				CalledAppID:    raw.CalledAppID,
				HTTPRequest:    raw.HTTPRequest,
				Gas:            raw.Gas,
				Modifier:       modifier,
				Attachments:    raw.Attachments,
				SignedMessages: raw.SignedMessages,
			}, raw.AdjList)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, n := range results {
		s.nodes[RequestID(i)] = n
	}
	s.remaining = count
	return nil
}

// ChunkAccess pairs one request's declared access to a chunk offset with
// the request that declared it -- the flattened unit CheckDependencyGraph
// groups by chunk across the whole block. A BlockLoader builds these
// directly from the same raw access map it supplies to LoadRequests.
type ChunkAccess struct {
	RequestID RequestID
	Offset    int32
	Size      uint32
	Mode      heap.AccessMode
}

// CheckDependencyGraph verifies the proposer's declared DAG edges against
// every real chunk-level collision implied by perChunk, which groups every
// request's declared accesses by the chunk they target. Chunks are checked
// concurrently since a collision can only ever involve accesses to the
// same chunk.
func (s *Scheduler) CheckDependencyGraph(ctx context.Context, perChunk map[ids.FullID][]ChunkAccess) error {
	g, _ := errgroup.WithContext(ctx)
	for fullID, entries := range perChunk {
		fullID, entries := fullID, entries
		g.Go(func() error {
			accesses := make([]accessBlockInfo, len(entries))
			for i, e := range entries {
				accesses[i] = accessBlockInfo{requestID: e.RequestID, offset: e.Offset, size: e.Size, mode: e.Mode}
			}
			if lowerBound, err := s.index.GetSizeLowerBound(fullID); err == nil {
				resizing := append([]accessBlockInfo(nil), accesses...)
				if err := findResizingCollisions(s.nodes, resizing, lowerBound); err != nil {
					return err
				}
			}
			return findCollisionCliques(s.nodes, accesses)
		})
	}
	return g.Wait()
}
