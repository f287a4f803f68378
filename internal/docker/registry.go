package docker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/conveyorci/conveyor/internal/workflow"
)

// Registry is the image-registry surface the build orchestrator consumes.
type Registry interface {
	// EnsureBuilder makes sure a multi-platform build backend is available,
	// creating one when missing.
	EnsureBuilder(ctx context.Context) error

	// Login authenticates to the registry.
	Login(ctx context.Context, user, password string) error

	// ManifestExists reports whether name:digest is already published.
	ManifestExists(ctx context.Context, ref string) bool

	// Build builds and pushes one image, streaming output to logPath.
	// The returned exit code is zero on success; err is set only when the
	// build could not be invoked at all.
	Build(ctx context.Context, img workflow.Image, digests map[string]string, logPath string) (int, error)
}

// CLI drives the registry through the local docker binary with buildx.
type CLI struct {
	BuilderName string
}

func NewCLI() *CLI {
	return &CLI{BuilderName: "conveyor-builder"}
}

func (c *CLI) EnsureBuilder(ctx context.Context) error {
	inspect := exec.CommandContext(ctx, "docker", "buildx", "inspect", "--bootstrap")
	out, err := inspect.CombinedOutput()
	if err == nil && strings.Contains(string(out), "docker-container") {
		return nil
	}

	create := exec.CommandContext(ctx, "docker", "buildx", "create", "--use",
		"--name", c.BuilderName, "--driver", "docker-container")
	if out, err := create.CombinedOutput(); err != nil {
		return fmt.Errorf("creating buildx builder: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *CLI) Login(ctx context.Context, user, password string) error {
	cmd := exec.CommandContext(ctx, "docker", "login", "--username", user, "--password-stdin")
	cmd.Stdin = strings.NewReader(password)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("docker login: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ManifestExists treats only an explicit "no such manifest" as absence. Any
// other registry response leaves the image alone rather than triggering a
// rebuild of something that may already be published.
func (c *CLI) ManifestExists(ctx context.Context, ref string) bool {
	cmd := exec.CommandContext(ctx, "docker", "manifest", "inspect", ref)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return true
	}
	return !strings.Contains(string(out), "no such manifest")
}

func (c *CLI) Build(ctx context.Context, img workflow.Image, digests map[string]string, logPath string) (int, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return -1, fmt.Errorf("creating build log %s: %w", logPath, err)
	}
	defer func() { _ = logFile.Close() }()

	args := []string{"buildx", "build", "--push"}
	if len(img.Platforms) > 0 {
		args = append(args, "--platform", strings.Join(img.Platforms, ","))
	}
	// Dependency digests are exposed as build args so a parent image can be
	// pinned to the exact tag built earlier in this run.
	for _, dep := range img.DependsOn {
		args = append(args, "--build-arg", fmt.Sprintf("DIGEST_%s=%s", normalize(dep), digests[dep]))
	}
	args = append(args, "--tag", fmt.Sprintf("%s:%s", img.Name, digests[img.Name]), img.Path)

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("invoking docker build: %w", err)
	}
	return 0, nil
}

// normalize maps an image name to a string safe for file names and build
// arg identifiers.
func normalize(name string) string {
	r := strings.NewReplacer("/", "_", ":", "_", "-", "_", ".", "_")
	return r.Replace(name)
}

// LogFileName returns the per-image build log path under outputDir.
func LogFileName(outputDir, imageName string) string {
	return fmt.Sprintf("%s/docker_%s.log", outputDir, normalize(imageName))
}
