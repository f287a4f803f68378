package phases

import (
	"context"
	"fmt"
	"os"

	"github.com/conveyorci/conveyor/internal/digest"
	"github.com/conveyorci/conveyor/internal/docker"
	"github.com/conveyorci/conveyor/internal/result"
	"github.com/conveyorci/conveyor/internal/store"
)

// RunDockerBuild ensures every image the workflow declares exists, published
// under its content digest. Images already published are skipped; one broken
// image does not stop the remaining builds, it only fails the aggregate.
func RunDockerBuild(ctx context.Context, deps *Deps) error {
	w := deps.Workflow
	jobName := deps.Settings.DockerBuildJobName
	deps.Log.Info("starting phase", "job", jobName, "workflow", w.Name)
	sw := result.NewStopwatch()

	// A duplicate name or dependency cycle is a configuration bug no retry
	// can fix; abort outright instead of recording a Result.
	sorted, err := docker.SortInBuildOrder(w.Dockers)
	if err != nil {
		return fmt.Errorf("image set is invalid: %w", err)
	}
	digests, err := digest.Images(sorted)
	if err != nil {
		return fmt.Errorf("computing image digests: %w", err)
	}

	jobStatus := result.StatusSuccess
	var jobInfo []string
	var results []result.Result
	var attached []string

	// Infrastructure preconditions. If either fails, no builds are
	// attempted at all.
	if err := deps.Registry.EnsureBuilder(ctx); err != nil {
		jobStatus = result.StatusError
		jobInfo = append(jobInfo, "failed to bootstrap buildx builder: "+err.Error())
	}

	if jobStatus == result.StatusSuccess {
		password := secretValue(ctx, deps, deps.Settings.DockerHubSecret)
		if err := deps.Registry.Login(ctx, deps.Settings.DockerHubUsername, password); err != nil {
			jobStatus = result.StatusError
			jobInfo = append(jobInfo, "failed to log in to registry: "+err.Error())
		}
	}

	if jobStatus == result.StatusSuccess {
		if err := os.MkdirAll(deps.Settings.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		for _, img := range sorted {
			imgSW := result.NewStopwatch()
			ref := fmt.Sprintf("%s:%s", img.Name, digests[img.Name])
			res := result.Result{
				Name:      img.Name,
				StartTime: imgSW.StartTime(),
				Info:      []string{ref},
			}

			if deps.Registry.ManifestExists(ctx, ref) {
				deps.Log.Info("image already published, skipping build", "image", ref)
				res.Status = result.StatusSkipped
			} else {
				logPath := docker.LogFileName(deps.Settings.OutputDir, img.Name)
				code, buildErr := deps.Registry.Build(ctx, img, digests, logPath)
				switch {
				case buildErr != nil:
					res.Status = result.StatusError
					res.AddInfo("build could not be invoked: " + buildErr.Error())
					jobStatus = result.StatusFailed
				case code != 0:
					res.Status = result.StatusFailed
					res.AddInfo(fmt.Sprintf("failed with exit code: %d, see log", code))
					res.Files = append(res.Files, logPath)
					attached = append(attached, logPath)
					jobStatus = result.StatusFailed
				default:
					res.Status = result.StatusSuccess
				}
			}

			res.Duration = imgSW.Elapsed()
			results = append(results, res)
		}
	}

	agg := result.Result{
		Name:      jobName,
		Status:    jobStatus,
		StartTime: sw.StartTime(),
		Duration:  sw.Elapsed(),
		Info:      jobInfo,
		Results:   results,
	}
	uploadFiles(ctx, deps, &agg, attached)

	if err := store.PutJSON(ctx, deps.Store, store.JobResultKey(w.Name, jobName), agg); err != nil {
		return fmt.Errorf("writing phase result: %w", err)
	}
	return phaseExit(agg)
}
