// Package store is the shared result store every job process writes into.
// Each job owns a disjoint key, so plain writes are last-write-wins. The one
// genuinely contended key, the workflow-wide result aggregate, is guarded
// by an optimistic version counter that only conditional writes advance.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key has never been written.
	ErrNotFound = errors.New("store: not found")

	// ErrVersionConflict is returned by PutWithVersion when another writer
	// advanced the version since it was read.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the versioned read/write contract of the shared store.
type Store interface {
	// Put writes a payload unconditionally. It does not touch the key's
	// version counter.
	Put(ctx context.Context, key string, payload []byte) error

	// GetWithVersion returns the payload plus the key's current version
	// (zero when no conditional write has happened yet).
	GetWithVersion(ctx context.Context, key string) ([]byte, int64, error)

	// PutWithVersion writes payload and advances the version counter to
	// version. It succeeds only when the current counter equals version-1.
	PutWithVersion(ctx context.Context, key string, payload []byte, version int64) error

	// AppendAnnotation appends a diagnostic note to the run annotation list
	// at key.
	AppendAnnotation(ctx context.Context, key, note string) error

	// Annotations returns the run annotation list at key, oldest first.
	Annotations(ctx context.Context, key string) ([]string, error)
}

// Key scheme. Per-job keys are single-writer; only the workflow result key
// is ever touched by more than one process.

func WorkflowResultKey(workflow string) string {
	return fmt.Sprintf("workflows/%s/result", workflow)
}

func JobResultKey(workflow, job string) string {
	return fmt.Sprintf("workflows/%s/jobs/%s/result", workflow, job)
}

func RunConfigKey(workflow string) string {
	return fmt.Sprintf("workflows/%s/runconfig", workflow)
}

func AnnotationKey(workflow string) string {
	return fmt.Sprintf("workflows/%s/info", workflow)
}

func CacheRecordKey(digest string) string {
	return fmt.Sprintf("cache/%s", digest)
}

// PutJSON marshals v and writes it unconditionally.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, payload)
}

// GetJSON reads key and unmarshals it into v, returning the version.
func GetJSON(ctx context.Context, s Store, key string, v any) (int64, error) {
	payload, version, err := s.GetWithVersion(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return 0, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return version, nil
}

// PutJSONWithVersion marshals v and writes it conditionally at version.
func PutJSONWithVersion(ctx context.Context, s Store, key string, v any, version int64) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.PutWithVersion(ctx, key, payload, version)
}
