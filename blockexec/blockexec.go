// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blockexec orchestrates one block's validation end to end: load
// requests, verify the declared dependency graph, run a fixed worker pool
// against the scheduler's ready queue, and commit or roll back the result.
// It follows the original's conditionalValidate shape -- any BlockError
// aborts the whole block and discards every page it touched -- combined
// with the teacher's Engine struct-with-mutex-state lifecycle.
package blockexec

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/execore/executor"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/index"
	luxlog "github.com/luxfi/log"

	execorelog "github.com/luxfi/execore/log"
	"github.com/luxfi/execore/metric"
	"github.com/luxfi/execore/page"
	"github.com/luxfi/execore/scheduler"
	"github.com/luxfi/execore/vmconfig"
	"github.com/luxfi/execore/vmerr"
	"github.com/luxfi/execore/wire"
)

// BlockLoader is everything a Validator needs to pull from the proposed
// block in order to load, verify, and execute its requests. It embeds
// scheduler.Loader and adds the page/migration/size-bound/app-dispatch and
// digest accessors the original's conditionalValidate pulls from the block
// body and the proposer's declared metadata.
type BlockLoader interface {
	scheduler.Loader

	// PageAccessList returns every page this block touches.
	PageAccessList(ctx context.Context) ([]ids.VarLenFullID, error)
	// NativeChunkIDs resolves every id in PageAccessList to the fixed-width
	// FullID of the chunk that page natively stores -- the proposer already
	// knows this pairing before it prefix-trie-encodes the access list, so
	// no trie decode is needed here to rebuild package index's chunk map.
	NativeChunkIDs(ctx context.Context) (map[ids.VarLenFullID]ids.FullID, error)
	// Migrations returns the chunk migrations this block declares.
	Migrations(ctx context.Context) ([]page.MigrationInfo, error)
	// SizeBounds returns the declared [lower, upper] size range for every
	// resizable chunk this block touches.
	SizeBounds(ctx context.Context) (map[ids.FullID]index.SizeBounds, error)
	// PerChunkAccesses groups every request's declared chunk accesses by
	// chunk, for CheckDependencyGraph. A concrete loader builds this from
	// the same raw access map it resolves per request for LoadRequests.
	PerChunkAccesses(ctx context.Context) (map[ids.FullID][]scheduler.ChunkAccess, error)
	// Apps resolves application dispatchers for the executor.
	Apps() executor.AppLoader
	// DeclaredDigest returns the proposer's claimed response-list digest.
	DeclaredDigest(ctx context.Context) (ids.Digest, error)
}

// Validator runs one block at a time; it is built once and reused across
// blocks, mirroring the teacher's long-lived Engine.
type Validator struct {
	cfg     *vmconfig.Config
	pages   page.Loader
	log     luxlog.Logger
	metrics *metric.Registry

	mu      sync.RWMutex
	running bool
}

// New returns a Validator backed by pages for persistent page storage.
func New(cfg *vmconfig.Config, pages page.Loader, log luxlog.Logger, metrics *metric.Registry) *Validator {
	if cfg == nil {
		cfg, _ = vmconfig.NewBuilder().Build()
	}
	if metrics == nil {
		metrics = metric.NoOp()
	}
	return &Validator{cfg: cfg, pages: pages, log: log, metrics: metrics}
}

// Start marks the validator as accepting blocks; Stop halts it. These
// exist to mirror the teacher's lifecycle surface for a long-running
// process embedding a Validator, even though Validate itself is
// reentrant-safe without them.
func (v *Validator) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.running {
		return fmt.Errorf("blockexec: validator already running")
	}
	v.running = true
	return nil
}

func (v *Validator) Stop(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.running {
		return fmt.Errorf("blockexec: validator not running")
	}
	v.running = false
	return nil
}

// Result is the outcome of validating one block.
type Result struct {
	Accepted  bool
	Responses []scheduler.AppResponse
	Digest    ids.Digest
}

// Validate loads, verifies, schedules, and executes blockNumber's requests
// against loader. Any BlockError -- a bad dependency graph, a failed fee
// payment, a response-digest mismatch -- is reported as a rejected block
// with no pages committed; every other error is returned unmodified as a
// collaborator failure, distinct from a deliberate block rejection.
func (v *Validator) Validate(ctx context.Context, blockNumber int64, loader BlockLoader) (Result, error) {
	cache := page.NewCache(v.pages)

	pageIDs, err := loader.PageAccessList(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("blockexec: loading page access list: %w", err)
	}
	migrations, err := loader.Migrations(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("blockexec: loading migrations: %w", err)
	}
	sizeBounds, err := loader.SizeBounds(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("blockexec: loading size bounds: %w", err)
	}

	pages, err := cache.PrepareBlockPages(ctx, blockNumber, pageIDs, migrations)
	if err != nil {
		return Result{}, fmt.Errorf("blockexec: preparing pages: %w", err)
	}

	nativeChunkIDs, err := loader.NativeChunkIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("blockexec: loading native chunk ids: %w", err)
	}
	byFullID := make(map[ids.FullID]*page.Page, len(pageIDs))
	for _, id := range pageIDs {
		fullID, ok := nativeChunkIDs[id]
		if !ok {
			return Result{}, fmt.Errorf("blockexec: no native chunk id declared for page %s", id)
		}
		byFullID[fullID] = pages[id.String()]
	}

	idx, err := index.New(byFullID, sizeBounds)
	if err != nil {
		return Result{}, fmt.Errorf("blockexec: building chunk index: %w", err)
	}

	responses, err := v.runBlock(ctx, idx, loader)
	if err != nil {
		if vmerr.IsBlockError(err) {
			v.log.Warn("block rejected", "err", err)
			cache.Rollback(pageIDs)
			return Result{Accepted: false}, nil
		}
		return Result{}, err
	}

	digest := ResponseListDigest(responses)
	declared, err := loader.DeclaredDigest(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("blockexec: loading declared digest: %w", err)
	}
	if digest != declared {
		execorelog.BlockDecision(v.log, declared, false, "response digest mismatch")
		cache.Rollback(pageIDs)
		return Result{Accepted: false}, nil
	}

	if err := cache.Commit(ctx, pages); err != nil {
		return Result{}, fmt.Errorf("blockexec: committing pages: %w", err)
	}
	execorelog.BlockDecision(v.log, declared, true, "")
	return Result{Accepted: true, Responses: responses, Digest: digest}, nil
}

// runBlock loads requests, verifies the declared dependency graph, and
// drains the scheduler's ready queue through a fixed worker pool, the same
// loadRequests/buildDependencyGraph/executeRequests pipeline the original
// runs sequentially per block, translated to a bounded goroutine pool.
func (v *Validator) runBlock(ctx context.Context, idx *index.Index, loader BlockLoader) ([]scheduler.AppResponse, error) {
	sched := scheduler.New(idx)
	if err := sched.LoadRequests(ctx, loader); err != nil {
		return nil, vmerr.WrapBlockError(err, "loading requests")
	}

	count, err := loader.RequestCount(ctx)
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < count; i++ {
		sched.FinalizeRequest(scheduler.RequestID(i))
	}

	perChunk, err := loader.PerChunkAccesses(ctx)
	if err != nil {
		return nil, err
	}
	if err := sched.CheckDependencyGraph(ctx, perChunk); err != nil {
		return nil, vmerr.WrapBlockError(err, "dependency graph verification failed")
	}

	if err := sched.BuildExecDag(); err != nil {
		return nil, vmerr.WrapBlockError(err, "execution graph")
	}

	results := make([]scheduler.AppResponse, 0, count)
	var resultsMu sync.Mutex

	workers := v.cfg.WorkerCount
	if workers < 1 {
		workers = runtime.NumCPU() * 2
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			exec := executor.New()
			for {
				req, err := sched.NextRequest(gctx)
				if err != nil {
					return err
				}
				if req == nil {
					return nil
				}
				resp := v.runOne(gctx, exec, req, loader)
				if err := sched.SubmitResult(resp); err != nil {
					return vmerr.NewBlockError("%s", err.Error())
				}
				resultsMu.Lock()
				results = append(results, resp)
				resultsMu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].RequestID < results[j].RequestID })
	return results, nil
}

func (v *Validator) runOne(ctx context.Context, exec *executor.Executor, req *scheduler.AppRequest, loader BlockLoader) scheduler.AppResponse {
	resp := exec.Run(ctx, executor.Request{
		CalledAppID:    req.CalledAppID,
		HTTPRequest:    req.HTTPRequest,
		Gas:            int64(req.Gas),
		Modifier:       req.Modifier,
		Apps:           loader.Apps(),
		StackFailures:  convertFailures(req.StackFailures),
		CPUFailures:    convertFailures(req.CPUFailures),
		SignedMessages: req.SignedMessages,
	})

	v.metrics.GasConsumed.Add(int64(req.Gas))
	server := fmt.Sprintf("app-%s", req.CalledAppID)
	status := vmerr.StatusCode(resp.Status)

	var rendered []byte
	if resp.Status >= 400 {
		v.metrics.Reverts.Inc()
		if resp.Status >= 500 {
			execorelog.ExecutorFault(v.log, req.CalledAppID, resp.Status, string(resp.Body))
		}
		rendered = wire.RenderError(status, server, string(resp.Body))
	} else {
		rendered = wire.RenderResponse(status, server, resp.Body)
	}

	return scheduler.AppResponse{RequestID: req.ID, StatusCode: resp.Status, Body: rendered}
}

func convertFailures(in map[int32]struct{}) map[executor.InvocationID]struct{} {
	out := make(map[executor.InvocationID]struct{}, len(in))
	for k := range in {
		out[executor.InvocationID(k)] = struct{}{}
	}
	return out
}

