// Package workflow holds the declarative model of one CI pipeline run: the
// workflow itself, its jobs, the container images it needs built, and the
// secrets those steps consume. Declarations are loaded from a YAML file; the
// executable parts (prechecks implemented as Go functions) are attached by
// the embedding program after loading.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Workflow is one CI pipeline run declaration.
type Workflow struct {
	Name    string      `yaml:"name"`
	Jobs    []Job       `yaml:"jobs"`
	Dockers []Image     `yaml:"dockers,omitempty"`
	Secrets []SecretRef `yaml:"secrets,omitempty"`

	EnableCache  bool `yaml:"enable_cache,omitempty"`
	EnableReport bool `yaml:"enable_report,omitempty"`
	EnableCIDB   bool `yaml:"enable_cidb,omitempty"`

	// EnableMergeCommit is accepted by the schema but unsupported: the
	// configuration phase aborts when it is set.
	EnableMergeCommit bool `yaml:"enable_merge_commit,omitempty"`

	// Prechecks run at the start of the configuration phase. Command entries
	// may be declared in YAML; function entries are attached in code.
	Prechecks []Precheck `yaml:"prechecks,omitempty"`
}

// Job is one schedulable unit of work within a workflow.
type Job struct {
	Name    string   `yaml:"name"`
	RunsOn  []string `yaml:"runs_on,omitempty"`
	Command string   `yaml:"command,omitempty"`

	// Requirements describe what the runner must provide, opaque to the core.
	Requirements map[string]string `yaml:"requirements,omitempty"`

	// AllowMergeOnFailure keeps a failing job from blocking merge-readiness.
	AllowMergeOnFailure bool `yaml:"allow_merge_on_failure,omitempty"`
}

// Image describes one container image the workflow builds. DependsOn names
// other images whose digests feed into this image's digest, so a dependency
// change invalidates every dependent.
type Image struct {
	Name      string   `yaml:"name"`
	Path      string   `yaml:"path"`
	Platforms []string `yaml:"platforms,omitempty"`
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// SecretRef names a secret and where to fetch it from. Values are resolved
// lazily and never cached beyond the scope of one check.
type SecretRef struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source,omitempty"` // "env" (default) or "file"
	Key    string `yaml:"key,omitempty"`    // env var or file name; defaults to Name
}

// ResolvedKey returns the provider-side key for the secret.
func (s SecretRef) ResolvedKey() string {
	if s.Key != "" {
		return s.Key
	}
	return s.Name
}

// GetJob returns the job with the given name, or nil.
func (w *Workflow) GetJob(name string) *Job {
	for i := range w.Jobs {
		if w.Jobs[i].Name == name {
			return &w.Jobs[i]
		}
	}
	return nil
}

// GetSecret returns the secret reference with the given name, or nil.
func (w *Workflow) GetSecret(name string) *SecretRef {
	for i := range w.Secrets {
		if w.Secrets[i].Name == name {
			return &w.Secrets[i]
		}
	}
	return nil
}

// Load reads a workflow declaration from a YAML file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing workflow %s: %w", path, err)
	}
	if w.Name == "" {
		return nil, fmt.Errorf("workflow %s has no name", path)
	}
	return &w, nil
}
