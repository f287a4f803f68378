package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: PR
enable_cache: true
enable_report: true
jobs:
  - name: Unit Tests
    command: go test ./...
    runs_on: [linux]
  - name: Perf
    command: make perf
    allow_merge_on_failure: true
dockers:
  - name: ci/base
    path: docker/base
    platforms: [linux/amd64, linux/arm64]
  - name: ci/test
    path: docker/test
    depends_on: [ci/base]
secrets:
  - name: DOCKERHUB_TOKEN
  - name: CI_DB_PASSWORD
    source: file
    key: cidb_password
prechecks:
  - name: disk space
    command: df -h
`

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	w, err := Load(writeWorkflow(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "PR", w.Name)
	assert.True(t, w.EnableCache)
	assert.True(t, w.EnableReport)
	assert.False(t, w.EnableCIDB)

	require.Len(t, w.Jobs, 2)
	assert.False(t, w.Jobs[0].AllowMergeOnFailure)
	assert.True(t, w.Jobs[1].AllowMergeOnFailure)

	require.Len(t, w.Dockers, 2)
	assert.Equal(t, []string{"ci/base"}, w.Dockers[1].DependsOn)

	require.Len(t, w.Prechecks, 1)
	assert.True(t, w.Prechecks[0].IsCommand())
}

func TestLoadRejectsNamelessWorkflow(t *testing.T) {
	_, err := Load(writeWorkflow(t, "jobs: []"))
	assert.ErrorContains(t, err, "no name")
}

func TestGetJobAndSecret(t *testing.T) {
	w, err := Load(writeWorkflow(t, sampleYAML))
	require.NoError(t, err)

	job := w.GetJob("Perf")
	require.NotNil(t, job)
	assert.True(t, job.AllowMergeOnFailure)
	assert.Nil(t, w.GetJob("missing"))

	secret := w.GetSecret("CI_DB_PASSWORD")
	require.NotNil(t, secret)
	assert.Equal(t, "file", secret.Source)
	assert.Equal(t, "cidb_password", secret.ResolvedKey())
	assert.Nil(t, w.GetSecret("missing"))

	// Key defaults to the secret name.
	hub := w.GetSecret("DOCKERHUB_TOKEN")
	require.NotNil(t, hub)
	assert.Equal(t, "DOCKERHUB_TOKEN", hub.ResolvedKey())
}
