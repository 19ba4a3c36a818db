// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scheduler loads a block's proposed requests, verifies the
// proposer-declared dependency graph against every real memory collision
// among them, and feeds requests ready for execution (in-degree zero) to a
// fixed worker pool through a ready queue.
package scheduler

import (
	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/index"
)

// RequestID identifies a request within one block, 0-based and dense.
type RequestID int32

// AppRequest is one proposed transaction, resolved against the block's
// chunk index and ready for the executor.
type AppRequest struct {
	ID             RequestID
	CalledAppID    ids.LongID
	HTTPRequest    []byte
	Gas            int32
	Modifier       *heap.Modifier
	Attachments    []RequestID
	Digest         ids.Digest
	StackFailures  map[int32]struct{}
	CPUFailures    map[int32]struct{}
	SignedMessages []string // pre-seeds the request's virtual signature manager
}

// AppResponse is the outcome of executing one AppRequest.
type AppResponse struct {
	RequestID  RequestID
	StatusCode int
	Body       []byte
}

// RawRequest is the block-loader-supplied description of one request,
// before it has been resolved into an AppRequest with a live modifier.
type RawRequest struct {
	ID             RequestID
	CalledAppID    ids.LongID
	HTTPRequest    []byte
	Gas            int32
	AccessMap      []index.RawAppAccess
	AdjList        []RequestID // proposer-declared DAG edges to higher-numbered requests
	Attachments    []RequestID
	SignedMessages []string
}

// DagNode is one node of the block's execution DAG: a resolved request
// plus its adjacency set and live in-degree counter.
type DagNode struct {
	Request  AppRequest
	adjacent map[RequestID]struct{}
	inDegree int32
}

func newDagNode(req AppRequest, adjList []RequestID) *DagNode {
	adj := make(map[RequestID]struct{}, len(adjList))
	for _, id := range adjList {
		adj[id] = struct{}{}
	}
	return &DagNode{Request: req, adjacent: adj}
}

// IsAdjacent reports whether other is a declared DAG neighbor of this node.
func (n *DagNode) IsAdjacent(other RequestID) bool {
	_, ok := n.adjacent[other]
	return ok
}
