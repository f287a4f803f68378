package hooks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/digest"
	"github.com/conveyorci/conveyor/internal/result"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/workflow"
)

func cacheFixture(t *testing.T) (*Cache, *workflow.Workflow, *workflow.RunConfig) {
	t.Helper()
	w := &workflow.Workflow{
		Name: "PR",
		Jobs: []workflow.Job{
			{Name: "Unit Tests", Command: "go test ./..."},
			{Name: "Style Check", Command: "make lint"},
		},
	}
	rc := workflow.NewRunConfig("PR", "deadbeef")
	rc.DigestJobs = digest.Jobs(w.Jobs)

	c := &Cache{Store: store.NewMemory(), Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	return c, w, rc
}

func TestCacheMissLeavesRunConfigEmpty(t *testing.T) {
	c, w, rc := cacheFixture(t)

	got, err := c.Configure(context.Background(), w, rc)
	require.NoError(t, err)

	assert.Empty(t, got.CacheSuccess)
	assert.Len(t, got.CacheJobs, 2, "every job gets its cache key recorded")
}

func TestCacheHitOnPriorSuccessfulResult(t *testing.T) {
	c, w, rc := cacheFixture(t)

	prior := result.Result{Name: "Unit Tests", Status: result.StatusSuccess}
	d := rc.DigestJobs["Unit Tests"]
	require.NoError(t, store.PutJSON(context.Background(), c.Store, store.CacheRecordKey(d), prior))

	got, err := c.Configure(context.Background(), w, rc)
	require.NoError(t, err)

	assert.True(t, got.IsCacheHit("Unit Tests"))
	assert.False(t, got.IsCacheHit("Style Check"))
	assert.Equal(t, store.CacheRecordKey(d), got.CacheArtifacts["Unit Tests"])
}

func TestCacheIgnoresPriorFailure(t *testing.T) {
	c, w, rc := cacheFixture(t)

	prior := result.Result{Name: "Unit Tests", Status: result.StatusFailed}
	d := rc.DigestJobs["Unit Tests"]
	require.NoError(t, store.PutJSON(context.Background(), c.Store, store.CacheRecordKey(d), prior))

	got, err := c.Configure(context.Background(), w, rc)
	require.NoError(t, err)
	assert.False(t, got.IsCacheHit("Unit Tests"), "a failed prior run is not a cache hit")
}

func TestCacheRequiresJobDigests(t *testing.T) {
	c, w, rc := cacheFixture(t)
	rc.DigestJobs = map[string]string{}

	_, err := c.Configure(context.Background(), w, rc)
	assert.ErrorContains(t, err, "no digest")
}
