// Package phases implements the three native job controllers: the docker
// build orchestrator, the workflow configuration pipeline, and the workflow
// finalization reconciler. Each runs to completion in one process, writes
// its own Result to the shared store as its last act, and reports a
// blocking outcome only through the process exit code.
package phases

import (
	"context"
	"log/slog"

	"github.com/conveyorci/conveyor/internal/clierr"
	"github.com/conveyorci/conveyor/internal/config"
	"github.com/conveyorci/conveyor/internal/docker"
	"github.com/conveyorci/conveyor/internal/result"
	"github.com/conveyorci/conveyor/internal/secrets"
	"github.com/conveyorci/conveyor/internal/shell"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/workflow"
)

// DBChecker probes the CI metrics database.
type DBChecker interface {
	Check(ctx context.Context, url, password string) (ok bool, info string)
}

// StatusPoster publishes a named commit status.
type StatusPoster interface {
	PostCommitStatus(ctx context.Context, sha, name string, status result.Status, description, targetURL string) error
}

// Uploader pushes attached files to durable artifact storage.
type Uploader interface {
	UploadAll(ctx context.Context, prefix string, localPaths []string) ([]string, error)
}

// CacheConfigurer is the external cache subsystem: it decides per-job cache
// hits and returns the (possibly mutated) RunConfig.
type CacheConfigurer interface {
	Configure(ctx context.Context, w *workflow.Workflow, rc *workflow.RunConfig) (*workflow.RunConfig, error)
}

// ReportConfigurer is the external report subsystem: it initializes the
// human-facing report and returns the artifact path.
type ReportConfigurer interface {
	Configure(ctx context.Context, w *workflow.Workflow, sha string) (string, error)
}

// Deps carries everything a phase controller consumes. All external
// services are behind interfaces so tests can substitute fakes.
type Deps struct {
	Settings config.Settings
	Log      *slog.Logger
	Workflow *workflow.Workflow

	Store    store.Store
	Registry docker.Registry
	Secrets  secrets.Resolver
	Shell    shell.Runner
	CIDB     DBChecker
	Status   StatusPoster
	Cache    CacheConfigurer
	Report   ReportConfigurer

	// Uploader is nil when no artifact store is configured.
	Uploader Uploader
}

// phaseExit maps an aggregate Result onto the process exit contract:
// nil for success/skipped, exit code 1 otherwise.
func phaseExit(r result.Result) error {
	if r.Ok() {
		return nil
	}
	return clierr.Newf(1, "%s finished with status %s", r.Name, r.Status)
}

// uploadFiles pushes attached files to the artifact store when one is
// configured. Upload trouble is recorded on the aggregate rather than
// escalated: losing a log copy must not change the phase outcome.
func uploadFiles(ctx context.Context, deps *Deps, agg *result.Result, files []string) {
	if deps.Uploader == nil || len(files) == 0 {
		return
	}
	prefix := "workflows/" + deps.Workflow.Name
	if _, err := deps.Uploader.UploadAll(ctx, prefix, files); err != nil {
		deps.Log.Warn("artifact upload failed", "error", err)
		agg.AddInfo("artifact upload failed: " + err.Error())
	}
}

// secretValue resolves a workflow secret by name, returning "" when the
// secret is not declared or cannot be read.
func secretValue(ctx context.Context, deps *Deps, name string) string {
	ref := deps.Workflow.GetSecret(name)
	if ref == nil {
		return ""
	}
	value, err := deps.Secrets.Get(ctx, *ref)
	if err != nil {
		deps.Log.Warn("secret resolution failed", "secret", name, "error", err)
		return ""
	}
	return value
}
