package phases

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conveyorci/conveyor/internal/digest"
	"github.com/conveyorci/conveyor/internal/docker"
	"github.com/conveyorci/conveyor/internal/result"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/workflow"
)

// RunConfigure validates that the workflow is runnable and produces the
// RunConfig every later job reads. Checks are independent: a failing check
// escalates the aggregate to error but never stops the remaining checks,
// so every outcome stays visible.
func RunConfigure(ctx context.Context, deps *Deps) error {
	w := deps.Workflow
	jobName := deps.Settings.ConfigJobName
	deps.Log.Info("starting phase", "job", jobName, "workflow", w.Name)
	sw := result.NewStopwatch()

	if w.EnableMergeCommit {
		// Explicitly unsupported configuration path.
		return fmt.Errorf("workflow %q: enable_merge_commit is not supported", w.Name)
	}

	var results []result.Result
	var files []string
	var infoLines []string
	jobStatus := result.StatusSuccess

	escalate := func(res result.Result) {
		if !res.Ok() {
			jobStatus = result.StatusError
			if info := res.InfoText(); info != "" {
				infoLines = append(infoLines, jobName+": "+info)
			}
		}
	}

	rc := workflow.NewRunConfig(w.Name, deps.Settings.SHA)
	if err := dumpRunConfig(ctx, deps, rc); err != nil {
		return err
	}

	if len(w.Prechecks) > 0 {
		preSW := result.NewStopwatch()
		var sub []result.Result
		for _, pre := range w.Prechecks {
			sub = append(sub, runPrecheck(ctx, deps, pre))
		}
		pre := result.Aggregate("Pre Checks", sub, preSW)
		results = append(results, pre)
		escalate(pre)
	}

	res := checkWorkflowsUpToDate(ctx, deps)
	results = append(results, res)
	escalate(res)

	if len(w.Secrets) > 0 {
		res := checkSecrets(ctx, deps)
		results = append(results, res)
		escalate(res)
	}

	if w.EnableCIDB {
		res := checkCIDB(ctx, deps)
		results = append(results, res)
		escalate(res)
	}

	// Derived configuration. Digests are computed even when checks failed:
	// the RunConfig must exist for whatever runs next.
	if len(w.Dockers) > 0 {
		sorted, err := docker.SortInBuildOrder(w.Dockers)
		if err != nil {
			return fmt.Errorf("image set is invalid: %w", err)
		}
		rc.DigestDockers, err = digest.Images(sorted)
		if err != nil {
			return fmt.Errorf("computing image digests: %w", err)
		}
		if err := dumpRunConfig(ctx, deps, rc); err != nil {
			return err
		}
	}
	rc.DigestJobs = digest.Jobs(w.Jobs)

	if w.EnableCache {
		cacheSW := result.NewStopwatch()
		lookup := result.Result{Name: "Cache Lookup", StartTime: cacheSW.StartTime()}
		mutated, err := deps.Cache.Configure(ctx, w, rc)
		if err != nil {
			lookup.Status = result.StatusError
			lookup.AddInfo("cache lookup failed: " + err.Error())
		} else {
			lookup.Status = result.StatusSuccess
			rc = mutated
			if path, err := writeRunConfigFile(deps.Settings.OutputDir, rc); err == nil {
				files = append(files, path)
			} else {
				lookup.AddInfo("could not write runconfig artifact: " + err.Error())
			}
		}
		lookup.Duration = cacheSW.Elapsed()
		results = append(results, lookup)
		escalate(lookup)
	}

	// Last write wins: the store copy is fully overwritten on every dump.
	if err := dumpRunConfig(ctx, deps, rc); err != nil {
		return err
	}

	if w.EnableReport {
		reportSW := result.NewStopwatch()
		initReport := result.Result{Name: "Init Report", StartTime: reportSW.StartTime()}
		path, err := deps.Report.Configure(ctx, w, deps.Settings.SHA)
		if err != nil {
			initReport.Status = result.StatusError
			initReport.AddInfo("report init failed: " + err.Error())
		} else {
			initReport.Status = result.StatusSuccess
			files = append(files, path)
		}
		initReport.Duration = reportSW.Elapsed()
		results = append(results, initReport)
		escalate(initReport)
	}

	agg := result.Result{
		Name:      jobName,
		Status:    jobStatus,
		StartTime: sw.StartTime(),
		Duration:  sw.Elapsed(),
		Info:      infoLines,
		Results:   results,
		Files:     files,
	}
	uploadFiles(ctx, deps, &agg, files)

	if err := store.PutJSON(ctx, deps.Store, store.JobResultKey(w.Name, jobName), agg); err != nil {
		return fmt.Errorf("writing phase result: %w", err)
	}
	return phaseExit(agg)
}

func dumpRunConfig(ctx context.Context, deps *Deps, rc *workflow.RunConfig) error {
	if err := store.PutJSON(ctx, deps.Store, store.RunConfigKey(rc.Name), rc); err != nil {
		return fmt.Errorf("persisting runconfig: %w", err)
	}
	return nil
}

// writeRunConfigFile mirrors the RunConfig to a local artifact so it can be
// attached to the phase Result alongside the report page.
func writeRunConfigFile(outputDir string, rc *workflow.RunConfig) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	payload, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, "runconfig.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// checkWorkflowsUpToDate verifies the committed workflow definitions match
// what the generator would produce. A dirty workspace before regeneration
// is an infrastructure error; a dirty diff after regeneration means the
// committed definitions are stale.
func checkWorkflowsUpToDate(ctx context.Context, deps *Deps) (res result.Result) {
	sw := result.NewStopwatch()
	res = result.Result{Name: "Check Workflows Updated", StartTime: sw.StartTime()}
	defer func() { res.Duration = sw.Elapsed() }()

	diff := fmt.Sprintf("git diff-index HEAD -- %s", deps.Settings.WorkflowPathPrefix)

	before := deps.Shell.Run(ctx, diff)
	switch {
	case !before.Ok():
		res.Status = result.StatusError
		res.AddInfo("git diff failed: " + before.Output)
		return res
	case before.Output != "":
		res.Status = result.StatusError
		res.AddInfo(fmt.Sprintf("workspace has uncommitted files unexpectedly [%s]", before.Output))
		return res
	}

	if regen := deps.Shell.Run(ctx, deps.Settings.RegenerateCommand); !regen.Ok() {
		res.Status = result.StatusError
		res.AddInfo("failed to regenerate workflows: " + regen.Output)
		return res
	}

	after := deps.Shell.Run(ctx, diff)
	switch {
	case !after.Ok():
		res.Status = result.StatusError
		res.AddInfo("git diff failed: " + after.Output)
	case after.Output != "":
		res.Status = result.StatusFailed
		res.AddInfo("workflows are outdated")
	default:
		res.Status = result.StatusSuccess
	}
	return res
}

// checkSecrets resolves every declared secret. Invalid ones accumulate into
// one failing Result instead of failing fast, so a single run surfaces all
// of them.
func checkSecrets(ctx context.Context, deps *Deps) result.Result {
	sw := result.NewStopwatch()
	res := result.Result{Name: "Check Secrets", StartTime: sw.StartTime(), Status: result.StatusSuccess}

	for _, ref := range deps.Workflow.Secrets {
		value, err := deps.Secrets.Get(ctx, ref)
		if err != nil || value == "" {
			res.Status = result.StatusFailed
			res.AddInfo(fmt.Sprintf("failed to read secret [%s]", ref.Name))
		}
	}
	res.Duration = sw.Elapsed()
	return res
}

func checkCIDB(ctx context.Context, deps *Deps) result.Result {
	sw := result.NewStopwatch()
	res := result.Result{Name: "Check CI DB", StartTime: sw.StartTime()}

	url := secretValue(ctx, deps, deps.Settings.CIDBURLSecret)
	password := secretValue(ctx, deps, deps.Settings.CIDBPasswordSecret)
	ok, info := deps.CIDB.Check(ctx, url, password)
	if ok {
		res.Status = result.StatusSuccess
	} else {
		res.Status = result.StatusFailed
		res.AddInfo(info)
	}
	res.Duration = sw.Elapsed()
	return res
}

// runPrecheck executes one workflow-supplied precheck. The tagged variant
// decides how: command entries go through the shell, function entries run
// in-process.
func runPrecheck(ctx context.Context, deps *Deps, pre workflow.Precheck) (res result.Result) {
	sw := result.NewStopwatch()
	res = result.Result{Name: pre.Name, StartTime: sw.StartTime()}
	defer func() { res.Duration = sw.Elapsed() }()

	switch {
	case pre.IsCommand():
		out := deps.Shell.Run(ctx, pre.Command)
		if out.Ok() {
			res.Status = result.StatusSuccess
		} else {
			res.Status = result.StatusFailed
			res.AddInfo(out.Output)
			if out.Err != nil {
				res.AddInfo(out.Err.Error())
			}
		}
	case pre.Func != nil:
		if err := pre.Func(ctx); err != nil {
			res.Status = result.StatusFailed
			res.AddInfo(err.Error())
		} else {
			res.Status = result.StatusSuccess
		}
	default:
		res.Status = result.StatusError
		res.AddInfo("precheck has neither command nor function")
	}
	return res
}
