package phases

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/conveyorci/conveyor/internal/config"
	"github.com/conveyorci/conveyor/internal/result"
	"github.com/conveyorci/conveyor/internal/shell"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/workflow"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	return config.Settings{
		WorkflowName:       "PR",
		SHA:                "deadbeef",
		DockerBuildJobName: "Docker Builds",
		ConfigJobName:      "Config Workflow",
		FinishJobName:      "Finish Workflow",
		OutputDir:          t.TempDir(),
		WorkflowPathPrefix: ".conveyor",
		RegenerateCommand:  "make workflows",
		DockerHubUsername:  "ci-bot",
		DockerHubSecret:    "DOCKERHUB_TOKEN",
		CIDBURLSecret:      "CI_DB_URL",
		CIDBPasswordSecret: "CI_DB_PASSWORD",
		ReadyForMergeName:  "Ready for merge",
	}
}

func newTestDeps(t *testing.T, w *workflow.Workflow) *Deps {
	t.Helper()
	return &Deps{
		Settings: testSettings(t),
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Workflow: w,
		Store:    store.NewMemory(),
		Registry: &fakeRegistry{},
		Secrets:  fakeSecrets{},
		Shell:    &fakeShell{script: map[string][]shell.Outcome{}},
		CIDB:     &fakeCIDB{ok: true},
		Status:   &fakeStatus{},
		Cache:    &fakeCache{},
		Report:   &fakeReport{},
	}
}

type fakeRegistry struct {
	allExist   bool
	existing   map[string]bool
	failBuilds map[string]int
	builderErr error
	loginErr   error

	built       []string
	loginCalled bool
}

func (f *fakeRegistry) EnsureBuilder(context.Context) error { return f.builderErr }

func (f *fakeRegistry) Login(context.Context, string, string) error {
	f.loginCalled = true
	return f.loginErr
}

func (f *fakeRegistry) ManifestExists(_ context.Context, ref string) bool {
	return f.allExist || f.existing[ref]
}

func (f *fakeRegistry) Build(_ context.Context, img workflow.Image, _ map[string]string, logPath string) (int, error) {
	f.built = append(f.built, img.Name)
	if code, failed := f.failBuilds[img.Name]; failed {
		_ = os.WriteFile(logPath, []byte("build exploded\n"), 0o644)
		return code, nil
	}
	return 0, nil
}

// fakeShell replays scripted outcomes per command line; repeated calls to
// the same command consume the queue in order. Unscripted commands succeed
// with empty output.
type fakeShell struct {
	script map[string][]shell.Outcome
	calls  []string
}

func (f *fakeShell) Run(_ context.Context, command string) shell.Outcome {
	f.calls = append(f.calls, command)
	queue := f.script[command]
	if len(queue) == 0 {
		return shell.Outcome{}
	}
	out := queue[0]
	f.script[command] = queue[1:]
	return out
}

func (f *fakeShell) push(command string, out shell.Outcome) {
	f.script[command] = append(f.script[command], out)
}

type fakeSecrets map[string]string

func (f fakeSecrets) Get(_ context.Context, ref workflow.SecretRef) (string, error) {
	return f[ref.Name], nil
}

type fakeCIDB struct {
	ok     bool
	info   string
	called bool
}

func (f *fakeCIDB) Check(context.Context, string, string) (bool, string) {
	f.called = true
	return f.ok, f.info
}

type postedStatus struct {
	sha, name   string
	status      result.Status
	description string
}

type fakeStatus struct {
	err    error
	posted []postedStatus
}

func (f *fakeStatus) PostCommitStatus(_ context.Context, sha, name string, status result.Status, description, _ string) error {
	f.posted = append(f.posted, postedStatus{sha: sha, name: name, status: status, description: description})
	return f.err
}

type fakeCache struct {
	err  error
	hits []string
}

func (f *fakeCache) Configure(_ context.Context, _ *workflow.Workflow, rc *workflow.RunConfig) (*workflow.RunConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	rc.CacheSuccess = append(rc.CacheSuccess, f.hits...)
	return rc, nil
}

type fakeReport struct {
	err  error
	path string
}

func (f *fakeReport) Configure(context.Context, *workflow.Workflow, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.path == "" {
		return "output/report_PR.html", nil
	}
	return f.path, nil
}
