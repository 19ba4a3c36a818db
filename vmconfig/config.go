// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vmconfig holds the tunables a validator's execution core reads
// at startup: worker pool size, the failure manager's deterministic
// budgets, and the virtual signature manager's cost cap. It follows the
// same fluent Builder shape as the teacher's config package, scoped down
// to the handful of values the execution core actually consumes.
package vmconfig

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds every tunable the execution core reads at startup. Of these,
// blockexec.Validator reads WorkerCount; the other fields carry the same
// values as the executor, heap and vsm package constants, which those
// packages use directly instead of reading them from a Config.
type Config struct {
	// WorkerCount is the number of goroutines a Validator's worker pool
	// runs concurrently. Zero means the package default of twice the
	// number of logical CPUs.
	WorkerCount int `json:"workerCount"`

	// MaxCallDepth bounds nested InvokeDispatcher calls within a session.
	MaxCallDepth int `json:"maxCallDepth"`

	// MaxVersions bounds how many heap snapshots a Modifier retains.
	MaxVersions int `json:"maxVersions"`

	// GasToCPUTime converts one unit of gas into a CPU-time budget.
	GasToCPUTime time.Duration `json:"gasToCPUTime"`

	// FailCheckGasToCPUTime is the harsher conversion rate used for
	// invocations the proposer declared as expected CPU-time failures.
	FailCheckGasToCPUTime time.Duration `json:"failCheckGasToCPUTime"`

	// NominalStackSize and FailCheckStackSize are the deterministic stack
	// budgets the failure manager reports; see executor.FailureManager.
	NominalStackSize  int `json:"nominalStackSize"`
	FailCheckStackSize int `json:"failCheckStackSize"`

	// VSMMaxCost bounds a vsm.Manager's total accounted signature cost.
	VSMMaxCost int `json:"vsmMaxCost"`
}

// Builder provides a fluent interface for constructing a Config, validating
// each value as it is supplied rather than deferring every check to Build.
type Builder struct {
	config *Config
	err    error
}

// NewBuilder returns a Builder seeded with the package defaults.
func NewBuilder() *Builder {
	return &Builder{
		config: &Config{
			WorkerCount:            runtime.NumCPU() * 2,
			MaxCallDepth:           16,
			MaxVersions:            30000,
			GasToCPUTime:           300000 * time.Nanosecond,
			FailCheckGasToCPUTime:  150000 * time.Nanosecond,
			NominalStackSize:       2 * 1024 * 1024,
			FailCheckStackSize:     1024 * 1024,
			VSMMaxCost:             128 * 1024,
		},
	}
}

// WithWorkerCount overrides the worker pool size.
func (b *Builder) WithWorkerCount(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 1 {
		b.err = fmt.Errorf("worker count must be at least 1, got %d", n)
		return b
	}
	b.config.WorkerCount = n
	return b
}

// WithMaxCallDepth overrides the nested-call depth limit.
func (b *Builder) WithMaxCallDepth(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 1 {
		b.err = fmt.Errorf("max call depth must be at least 1, got %d", n)
		return b
	}
	b.config.MaxCallDepth = n
	return b
}

// WithVSMMaxCost overrides the virtual signature manager's cost cap.
func (b *Builder) WithVSMMaxCost(n int) *Builder {
	if b.err != nil {
		return b
	}
	if n < 1 {
		b.err = fmt.Errorf("vsm max cost must be at least 1, got %d", n)
		return b
	}
	b.config.VSMMaxCost = n
	return b
}

// Build returns the constructed Config, or the first error recorded by the
// builder chain.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	clone := *b.config
	return &clone, nil
}
