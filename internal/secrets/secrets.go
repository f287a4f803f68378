// Package secrets resolves workflow secret references. Values are fetched
// on demand and never cached beyond one check.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conveyorci/conveyor/internal/workflow"
)

// Resolver fetches the value behind a secret reference. An empty value with
// a nil error means the secret exists nowhere; the secret-validity check
// treats that as a failure, not an error.
type Resolver interface {
	Get(ctx context.Context, ref workflow.SecretRef) (string, error)
}

// Multi dispatches on the reference's declared source.
type Multi struct {
	// Dir is the base directory for file-sourced secrets (e.g. a mounted
	// secrets volume).
	Dir string
}

func NewMulti(dir string) *Multi {
	return &Multi{Dir: dir}
}

func (m *Multi) Get(_ context.Context, ref workflow.SecretRef) (string, error) {
	switch ref.Source {
	case "", "env":
		return os.Getenv(ref.ResolvedKey()), nil
	case "file":
		path := filepath.Join(m.Dir, ref.ResolvedKey())
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", fmt.Errorf("reading secret file %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("secret %q has unknown source %q", ref.Name, ref.Source)
	}
}
