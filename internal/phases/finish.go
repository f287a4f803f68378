package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/conveyorci/conveyor/internal/result"
	"github.com/conveyorci/conveyor/internal/store"
)

// RunFinish reconciles all job outcomes into the merge-readiness decision.
// It repairs job records left non-terminal by crashed or never-scheduled
// runners and publishes the decision as a commit status. Only when a repair
// happened does it republish the corrected collection, under the version
// read at the start incremented by exactly one.
func RunFinish(ctx context.Context, deps *Deps) error {
	w := deps.Workflow
	jobName := deps.Settings.FinishJobName
	deps.Log.Info("starting phase", "job", jobName, "workflow", w.Name)
	sw := result.NewStopwatch()

	key := store.WorkflowResultKey(w.Name)
	annotationKey := store.AnnotationKey(w.Name)

	var collection result.Result
	version, err := store.GetJSON(ctx, deps.Store, key, &collection)
	if err != nil {
		return fmt.Errorf("fetching workflow results: %w", err)
	}

	mergeStatus := result.StatusSuccess
	var blocking []string
	corrected := false

	for i := range collection.Results {
		job := &collection.Results[i]
		if job.Name == jobName || job.Ok() {
			continue
		}

		if !job.Completed() {
			deps.Log.Error("job was never finalized, forcing error status", "job", job.Name)
			job.Status = result.StatusError
			// Re-persist right away so a human sees a non-hanging state
			// even if this process dies before the conditional write.
			if err := store.PutJSON(ctx, deps.Store, key, collection); err != nil {
				deps.Log.Warn("could not persist corrected results", "error", err)
			}
			if err := deps.Store.AppendAnnotation(ctx, annotationKey,
				fmt.Sprintf("%s: job was not finalized", job.Name)); err != nil {
				deps.Log.Warn("could not append annotation", "error", err)
			}
			corrected = true
		}

		decl := w.GetJob(job.Name)
		if decl == nil || !decl.AllowMergeOnFailure {
			deps.Log.Info("blocking result", "job", job.Name, "status", job.Status)
			mergeStatus = result.StatusFailed
			blocking = append(blocking, job.Name)
		}
	}

	description := ""
	if len(blocking) > 0 {
		description = fmt.Sprintf("Failed %d \"Required for Merge\" jobs: %s",
			len(blocking), strings.Join(blocking, ", "))
	}

	statusName := fmt.Sprintf("%s [%s]", deps.Settings.ReadyForMergeName, w.Name)
	if err := deps.Status.PostCommitStatus(ctx, deps.Settings.SHA, statusName, mergeStatus, description, ""); err != nil {
		// A status-API outage must not mask the decision already computed;
		// record it and move on.
		deps.Log.Error("failed to publish merge status", "error", err)
		if annErr := deps.Store.AppendAnnotation(ctx, annotationKey,
			"failed to set commit status: "+err.Error()); annErr != nil {
			deps.Log.Warn("could not append annotation", "error", annErr)
		}
	}

	if corrected {
		if err := store.PutJSONWithVersion(ctx, deps.Store, key, collection, version+1); err != nil {
			deps.Log.Error("corrected results republish failed", "error", err, "version", version+1)
			if annErr := deps.Store.AppendAnnotation(ctx, annotationKey,
				"failed to republish corrected results: "+err.Error()); annErr != nil {
				deps.Log.Warn("could not append annotation", "error", annErr)
			}
		}
	}

	// Finalization reporting its own failure would deadlock the merge gate,
	// so it records success unconditionally.
	own := result.Result{
		Name:      jobName,
		Status:    result.StatusSuccess,
		StartTime: sw.StartTime(),
		Duration:  sw.Elapsed(),
	}
	if err := store.PutJSON(ctx, deps.Store, store.JobResultKey(w.Name, jobName), own); err != nil {
		return fmt.Errorf("writing phase result: %w", err)
	}
	return nil
}
