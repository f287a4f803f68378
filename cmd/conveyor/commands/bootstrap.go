package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/conveyorci/conveyor/internal/artifacts"
	"github.com/conveyorci/conveyor/internal/cidb"
	"github.com/conveyorci/conveyor/internal/config"
	"github.com/conveyorci/conveyor/internal/docker"
	"github.com/conveyorci/conveyor/internal/ghstatus"
	"github.com/conveyorci/conveyor/internal/hooks"
	"github.com/conveyorci/conveyor/internal/phases"
	"github.com/conveyorci/conveyor/internal/secrets"
	"github.com/conveyorci/conveyor/internal/shell"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/workflow"
)

// buildDeps wires the production dependency graph for one phase run.
func buildDeps() (*phases.Deps, func(), error) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	w, err := workflow.Load(cfg.WorkflowFile)
	if err != nil {
		return nil, nil, err
	}
	if cfg.WorkflowName != "" && cfg.WorkflowName != w.Name {
		return nil, nil, fmt.Errorf("workflow file declares %q, environment expects %q", w.Name, cfg.WorkflowName)
	}

	redisClient := store.NewRedisClient(cfg.Redis)
	resultStore := store.NewRedis(redisClient, cfg.StorePrefix)

	deps := &phases.Deps{
		Settings: cfg,
		Log:      log,
		Workflow: w,
		Store:    resultStore,
		Registry: docker.NewCLI(),
		Secrets:  secrets.NewMulti(cfg.SecretsDir),
		Shell:    shell.Exec{Dir: cfg.RepoDir},
		CIDB:     cidb.New(),
		Status:   ghstatus.New(cfg.GitHub.APIURL, cfg.GitHub.Repo, cfg.GitHub.Token),
		Cache:    &hooks.Cache{Store: resultStore, Log: log},
		Report:   &hooks.Report{OutputDir: cfg.OutputDir},
	}

	if cfg.S3.Enabled() {
		uploader, err := artifacts.NewUploader(cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		deps.Uploader = uploader
	}

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("closing store client", "error", err)
		}
	}
	return deps, cleanup, nil
}
