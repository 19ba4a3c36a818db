// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
)

// FinalizeRequest propagates this request's declared adjacency as
// in-degree increments on its neighbors. It must be called for every
// request once all requests have been loaded, before BuildExecDag.
func (s *Scheduler) FinalizeRequest(id RequestID) {
	node := s.nodes[id]
	for adjID := range node.adjacent {
		if adj, ok := s.nodes[adjID]; ok {
			adj.inDegree++
		}
	}
}

// BuildExecDag verifies the finalized graph is actually acyclic and opens
// the ready queue, seeded with every request whose in-degree is already
// zero. The acyclicity check runs a Kahn's-algorithm dry run over a copy
// of the in-degree counters so that a malformed proposer-declared adjacency
// (a real cycle, as opposed to a missing collision edge, which
// CheckDependencyGraph already rejects) is caught before any worker can
// block on it forever.
func (s *Scheduler) BuildExecDag() error {
	indeg := make(map[RequestID]int32, len(s.nodes))
	for id, n := range s.nodes {
		indeg[id] = n.inDegree
	}

	queue := make([]RequestID, 0, len(s.nodes))
	for id, d := range indeg {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for adjID := range s.nodes[id].adjacent {
			indeg[adjID]--
			if indeg[adjID] == 0 {
				queue = append(queue, adjID)
			}
		}
	}
	if visited != len(s.nodes) {
		return fmt.Errorf("scheduler: execution graph is not a dag")
	}

	s.readyQueue = make(chan *DagNode, len(s.nodes))
	for _, n := range s.nodes {
		if n.inDegree == 0 {
			s.readyQueue <- n
		}
	}
	if len(s.nodes) == 0 {
		close(s.readyQueue)
	}
	return nil
}

// NextRequest blocks until a request is ready for execution, returning nil
// once every request in the block has been submitted.
func (s *Scheduler) NextRequest(ctx context.Context) (*AppRequest, error) {
	select {
	case node, ok := <-s.readyQueue:
		if !ok {
			return nil, nil
		}
		return &node.Request, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitResult records the outcome of executing a request, unblocking any
// dependent request whose in-degree drops to zero. A status code above 400
// on a request carrying fee-payment attachments fails the whole block, per
// the original's refusal to land a block whose fee payment didn't succeed.
func (s *Scheduler) SubmitResult(result AppResponse) error {
	s.mu.Lock()
	node, ok := s.nodes[result.RequestID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: unknown request %d", result.RequestID)
	}

	if result.StatusCode > 400 && len(node.Request.Attachments) > 0 {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: block contains a failed fee payment for request %d", result.RequestID)
	}

	delete(s.nodes, result.RequestID)
	s.remaining--
	done := s.remaining == 0
	s.mu.Unlock()

	for adjID := range node.adjacent {
		s.mu.Lock()
		adj, ok := s.nodes[adjID]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if atomic.AddInt32(&adj.inDegree, -1) == 0 {
			s.readyQueue <- adj
		}
	}

	if done {
		close(s.readyQueue)
	}
	return nil
}
