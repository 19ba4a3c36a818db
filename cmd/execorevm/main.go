// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// execorevm runs a single synthetic block through a blockexec.Validator
// against an in-memory page store, printing the accept/reject decision and
// every response. It exists to exercise the validator end to end without a
// real chain feeding it blocks, the same role cmd/sim plays for consensus.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/luxfi/execore/blockexec"
	"github.com/luxfi/execore/executor"
	"github.com/luxfi/execore/ids"
	"github.com/luxfi/execore/index"
	execorelog "github.com/luxfi/execore/log"
	"github.com/luxfi/execore/metric"
	"github.com/luxfi/execore/page"
	"github.com/luxfi/execore/scheduler"
	"github.com/luxfi/execore/vmconfig"
	"github.com/luxfi/execore/vmerr"
	"github.com/luxfi/execore/wire"
)

var logger = slog.Default().With("module", "execorevm")

func main() {
	requests := flag.Int("requests", 4, "Number of independent requests to synthesize in the block")
	workers := flag.Int("workers", 2, "Worker pool size")
	metricsAddr := flag.String("metrics-addr", "", "If set, serve Prometheus /metrics on this address")
	flag.Parse()

	cfg, err := vmconfig.NewBuilder().WithWorkerCount(*workers).Build()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	store := newMemoryPageStore()
	loader := newSyntheticBlock(*requests)

	promReg := metric.NewPromRegistry()
	registry, err := metric.NewPrometheusRegistry(promReg)
	if err != nil {
		logger.Error("registering metrics", "err", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metric.Handler(promReg))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	v := blockexec.New(cfg, store, execorelog.NewNoOpLogger(), registry)
	if err := v.Start(context.Background()); err != nil {
		logger.Error("starting validator", "err", err)
		os.Exit(1)
	}
	defer v.Stop(context.Background())

	result, err := v.Validate(context.Background(), 1, loader)
	if err != nil {
		logger.Error("validating block", "err", err)
		os.Exit(1)
	}

	fmt.Printf("block accepted: %v\n", result.Accepted)
	for _, resp := range result.Responses {
		fmt.Printf("  request %d -> status %d, body %q\n", resp.RequestID, resp.StatusCode, resp.Body)
	}
}

// memoryPageStore is a process-local page.Loader backing store, standing
// in for the persistent storage a real validator would read from.
type memoryPageStore struct {
	pages map[string]*page.Page
}

func newMemoryPageStore() *memoryPageStore {
	return &memoryPageStore{pages: make(map[string]*page.Page)}
}

func (s *memoryPageStore) LoadPage(ctx context.Context, id ids.VarLenFullID) (*page.Page, error) {
	return s.pages[id.String()], nil
}

func (s *memoryPageStore) CommitPages(ctx context.Context, modified map[string]*page.Page) error {
	for k, p := range modified {
		s.pages[k] = p
	}
	return nil
}

// syntheticBlock is a blockexec.BlockLoader over a fixed set of
// independent requests (no declared accesses or adjacency), enough to
// exercise the scheduler's DAG and worker-pool paths without a real
// chain's access-map encoding.
type syntheticBlock struct {
	requests []scheduler.RawRequest
}

func newSyntheticBlock(n int) *syntheticBlock {
	requests := make([]scheduler.RawRequest, n)
	for i := 0; i < n; i++ {
		appID := ids.LongID(i + 1)
		requests[i] = scheduler.RawRequest{
			ID:          scheduler.RequestID(i),
			CalledAppID: appID,
			HTTPRequest: []byte("GET /ping"),
			Gas:         100000,
		}
	}
	return &syntheticBlock{requests: requests}
}

func (b *syntheticBlock) RequestCount(ctx context.Context) (int32, error) {
	return int32(len(b.requests)), nil
}

func (b *syntheticBlock) LoadRequest(ctx context.Context, id scheduler.RequestID) (scheduler.RawRequest, error) {
	return b.requests[id], nil
}

func (b *syntheticBlock) PageAccessList(ctx context.Context) ([]ids.VarLenFullID, error) {
	return nil, nil
}

func (b *syntheticBlock) NativeChunkIDs(ctx context.Context) (map[ids.VarLenFullID]ids.FullID, error) {
	return nil, nil
}

func (b *syntheticBlock) Migrations(ctx context.Context) ([]page.MigrationInfo, error) {
	return nil, nil
}

func (b *syntheticBlock) SizeBounds(ctx context.Context) (map[ids.FullID]index.SizeBounds, error) {
	return nil, nil
}

func (b *syntheticBlock) PerChunkAccesses(ctx context.Context) (map[ids.FullID][]scheduler.ChunkAccess, error) {
	return nil, nil
}

func (b *syntheticBlock) Apps() executor.AppLoader { return pingAppLoader{} }

func (b *syntheticBlock) DeclaredDigest(ctx context.Context) (ids.Digest, error) {
	responses := make([]scheduler.AppResponse, len(b.requests))
	for i, req := range b.requests {
		server := "app-" + req.CalledAppID.String()
		body := wire.RenderResponse(vmerr.StatusOK, server, []byte("pong"))
		responses[i] = scheduler.AppResponse{RequestID: req.ID, StatusCode: 200, Body: body}
	}
	return blockexec.ResponseListDigest(responses), nil
}

type pingAppLoader struct{}

func (pingAppLoader) Dispatcher(appID ids.LongID) (executor.Dispatcher, bool) {
	return func(ctx context.Context, appID ids.LongID, request []byte) (int, []byte, error) {
		return 200, []byte("pong"), nil
	}, true
}

func (pingAppLoader) Declared(appID ids.LongID) bool { return true }
