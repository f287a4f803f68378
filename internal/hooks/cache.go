// Package hooks contains the cache and report subsystems invoked by the
// configuration phase.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/conveyorci/conveyor/internal/result"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/workflow"
)

// Cache decides per-job cache hits: a job whose digest already has a
// successful Result recorded in the shared store does not need to run again.
type Cache struct {
	Store store.Store
	Log   *slog.Logger
}

// Configure inspects every job digest and returns the RunConfig with cache
// bookkeeping filled in. The returned object replaces the persisted one
// wholesale on the next dump.
func (c *Cache) Configure(ctx context.Context, w *workflow.Workflow, rc *workflow.RunConfig) (*workflow.RunConfig, error) {
	for _, job := range w.Jobs {
		d, ok := rc.DigestJobs[job.Name]
		if !ok {
			return nil, fmt.Errorf("cache lookup: job %q has no digest", job.Name)
		}
		rc.CacheJobs[job.Name] = d

		var prior result.Result
		_, err := store.GetJSON(ctx, c.Store, store.CacheRecordKey(d), &prior)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cache lookup for %q: %w", job.Name, err)
		}
		if prior.Ok() {
			c.Log.Info("cache hit", "job", job.Name, "digest", d)
			rc.CacheSuccess = append(rc.CacheSuccess, job.Name)
			rc.CacheArtifacts[job.Name] = store.CacheRecordKey(d)
		}
	}
	return rc, nil
}
