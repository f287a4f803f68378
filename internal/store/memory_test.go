package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, _, err := s.GetWithVersion(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "k", []byte("v1")))
	payload, version, err := s.GetWithVersion(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), payload)
	assert.Equal(t, int64(0), version, "plain writes must not advance the version")

	require.NoError(t, s.Put(ctx, "k", []byte("v2")))
	payload, version, err = s.GetWithVersion(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), payload, "last write wins")
	assert.Equal(t, int64(0), version)
}

func TestMemoryConditionalWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Put(ctx, "k", []byte("v1")))

	// First conditional write: read version 0, write version 1.
	require.NoError(t, s.PutWithVersion(ctx, "k", []byte("v2"), 1))

	_, version, err := s.GetWithVersion(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Writing version 1 again must conflict: the counter moved on.
	err = s.PutWithVersion(ctx, "k", []byte("stale"), 1)
	assert.ErrorIs(t, err, ErrVersionConflict)

	payload, _, err := s.GetWithVersion(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), payload, "conflicting write must not apply")

	require.NoError(t, s.PutWithVersion(ctx, "k", []byte("v3"), 2))
}

func TestMemoryAnnotations(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	notes, err := s.Annotations(ctx, "wf/info")
	require.NoError(t, err)
	assert.Empty(t, notes)

	require.NoError(t, s.AppendAnnotation(ctx, "wf/info", "first"))
	require.NoError(t, s.AppendAnnotation(ctx, "wf/info", "second"))

	notes, err = s.Annotations(ctx, "wf/info")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, notes)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, PutJSON(ctx, s, "k", payload{Name: "x"}))

	var got payload
	version, err := GetJSON(ctx, s, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
	assert.Equal(t, int64(0), version)

	require.NoError(t, PutJSONWithVersion(ctx, s, "k", payload{Name: "y"}, 1))
	version, err = GetJSON(ctx, s, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, "y", got.Name)
	assert.Equal(t, int64(1), version)
}

func TestKeyScheme(t *testing.T) {
	assert.Equal(t, "workflows/PR/result", WorkflowResultKey("PR"))
	assert.Equal(t, "workflows/PR/jobs/Build/result", JobResultKey("PR", "Build"))
	assert.Equal(t, "workflows/PR/runconfig", RunConfigKey("PR"))
	assert.Equal(t, "workflows/PR/info", AnnotationKey("PR"))
	assert.Equal(t, "cache/abc", CacheRecordKey("abc"))
}
