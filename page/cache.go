// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package page

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/execore/ids"
)

// MigrationInfo describes a chunk whose native page has changed: it should
// be moved out of the page it was previously homed on (as a migrant) into
// its new native page.
type MigrationInfo struct {
	Chunk  ids.FullID
	FromID ids.VarLenFullID
	ToID   ids.VarLenFullID
}

// Loader is the persistent-storage collaborator a Cache pulls pages from
// and pushes committed pages back to. Implementations live outside this
// module; execore only depends on this interface.
type Loader interface {
	// LoadPage fetches the current on-disk content for a page id. A loader
	// returning (nil, nil) signals the page does not exist yet.
	LoadPage(ctx context.Context, id ids.VarLenFullID) (*Page, error)
	// CommitPages persists every page in modified, keyed by the same ids
	// they were loaded under.
	CommitPages(ctx context.Context, modified map[string]*Page) error
}

// Cache is an in-memory working set of pages for one in-flight block. It
// is not safe for concurrent prepareBlockPages calls from multiple blocks,
// but page access within a single block is serialized by the scheduler's
// access-map ordering, so internal locking here only protects the cache
// index itself.
type Cache struct {
	mu     sync.Mutex
	loader Loader
	pages  map[string]*Page
}

// NewCache creates a Cache backed by loader.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader, pages: make(map[string]*Page)}
}

func keyOf(id ids.VarLenFullID) string { return id.String() }

// PrepareBlockPages loads (or pulls from the in-memory cache) every page
// named in pageAccessList, applies the given chunk migrations by moving
// migrant chunks onto their new native page, and returns the set of
// resolved pages keyed by the string form of the VarLenFullID each was
// requested under (the same key the cache itself uses).
func (c *Cache) PrepareBlockPages(
	ctx context.Context,
	blockNumber int64,
	pageAccessList []ids.VarLenFullID,
	migrations []MigrationInfo,
) (map[string]*Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := make(map[string]*Page, len(pageAccessList))
	for _, id := range pageAccessList {
		key := keyOf(id)
		p, ok := c.pages[key]
		if !ok {
			loaded, err := c.loader.LoadPage(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("page: loading %s: %w", id, err)
			}
			if loaded == nil {
				var err error
				loaded, err = New(blockNumber)
				if err != nil {
					return nil, err
				}
			}
			c.pages[key] = loaded
			p = loaded
		}
		resolved[key] = p
	}

	for _, mig := range migrations {
		fromKey := keyOf(mig.FromID)
		toKey := keyOf(mig.ToID)
		from, ok := resolved[fromKey]
		if !ok {
			continue
		}
		to, ok := resolved[toKey]
		if !ok {
			continue
		}
		moved, ok := from.ExtractChunk(mig.Chunk)
		if !ok {
			continue
		}
		if err := to.AddMigrant(mig.Chunk, moved); err != nil {
			return nil, err
		}
	}

	return resolved, nil
}

// Commit persists modifiedPages through the loader and keeps the cache's
// copies as the new authoritative state.
func (c *Cache) Commit(ctx context.Context, modifiedPages map[string]*Page) error {
	c.mu.Lock()
	for k, p := range modifiedPages {
		c.pages[k] = p
	}
	c.mu.Unlock()
	return c.loader.CommitPages(ctx, modifiedPages)
}

// Rollback discards the in-memory copies of the named pages, forcing the
// next PrepareBlockPages call to reload them from the loader.
func (c *Cache) Rollback(pageIDs []ids.VarLenFullID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range pageIDs {
		delete(c.pages, keyOf(id))
	}
}
