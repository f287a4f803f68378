// Package config holds the explicit Settings struct constructed once at
// process start and passed into each phase controller. There are no ambient
// mutable globals; everything a phase needs to know about its environment
// lives here.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/conveyorci/conveyor/internal/artifacts"
	"github.com/conveyorci/conveyor/internal/store"
)

// Settings is populated from environment variables. A .env file is honored
// in development.
type Settings struct {
	// Workflow identity.
	WorkflowName string `env:"CONVEYOR_WORKFLOW"`
	WorkflowFile string `env:"CONVEYOR_WORKFLOW_FILE" envDefault:".conveyor/workflow.yaml"`
	SHA          string `env:"CONVEYOR_SHA"`

	// Native job names, as they appear in the workflow and in Results.
	DockerBuildJobName string `env:"CONVEYOR_DOCKER_BUILD_JOB" envDefault:"Docker Builds"`
	ConfigJobName      string `env:"CONVEYOR_CONFIG_JOB" envDefault:"Config Workflow"`
	FinishJobName      string `env:"CONVEYOR_FINISH_JOB" envDefault:"Finish Workflow"`

	// Paths and commands for the freshness check.
	RepoDir            string `env:"CONVEYOR_REPO_DIR" envDefault:"."`
	OutputDir          string `env:"CONVEYOR_OUTPUT_DIR" envDefault:"output"`
	WorkflowPathPrefix string `env:"CONVEYOR_WORKFLOW_PATH_PREFIX" envDefault:".conveyor"`
	RegenerateCommand  string `env:"CONVEYOR_REGENERATE_COMMAND" envDefault:"make workflows"`

	// Registry authentication. DockerHubSecret names a workflow secret.
	DockerHubUsername string `env:"CONVEYOR_DOCKERHUB_USERNAME"`
	DockerHubSecret   string `env:"CONVEYOR_DOCKERHUB_SECRET" envDefault:"DOCKERHUB_TOKEN"`

	// CI database secrets, by workflow secret name.
	CIDBURLSecret      string `env:"CONVEYOR_CIDB_URL_SECRET" envDefault:"CI_DB_URL"`
	CIDBPasswordSecret string `env:"CONVEYOR_CIDB_PASSWORD_SECRET" envDefault:"CI_DB_PASSWORD"`

	// Merge gate.
	ReadyForMergeName string `env:"CONVEYOR_READY_FOR_MERGE_NAME" envDefault:"Ready for merge"`

	SecretsDir  string `env:"CONVEYOR_SECRETS_DIR" envDefault:"/run/secrets"`
	StorePrefix string `env:"CONVEYOR_STORE_PREFIX" envDefault:"conveyor"`

	Redis  store.RedisSettings `envPrefix:"CONVEYOR_REDIS_"`
	S3     artifacts.Settings  `envPrefix:"CONVEYOR_S3_"`
	GitHub GitHubSettings
}

// GitHubSettings reuses the variables GitHub Actions already exports.
type GitHubSettings struct {
	Token  string `env:"GITHUB_TOKEN"`
	Repo   string `env:"GITHUB_REPOSITORY"`
	APIURL string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
}

// Load reads Settings from the environment, honoring a .env file when one
// exists.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Settings{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Settings
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse settings: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields every phase depends on.
func (s Settings) Validate() error {
	if s.WorkflowFile == "" {
		return errors.New("workflow file is not set")
	}
	if s.SHA == "" {
		return errors.New("source commit (CONVEYOR_SHA) is not set")
	}
	return nil
}
