// Package shell runs external commands for checks that shell out (git,
// workflow regeneration, workflow-supplied prechecks).
package shell

import (
	"context"
	"os/exec"
	"strings"
)

// Outcome is the captured result of one command invocation.
type Outcome struct {
	ExitCode int
	Output   string // combined stdout+stderr, tail-truncated
	Err      error  // non-nil only when the command could not be started
}

// Ok reports whether the command ran and exited zero.
func (o Outcome) Ok() bool {
	return o.Err == nil && o.ExitCode == 0
}

// Runner executes a shell command line and captures its outcome.
type Runner interface {
	Run(ctx context.Context, command string) Outcome
}

// Exec is the production Runner. Commands run through `sh -c` in Dir.
type Exec struct {
	Dir string
}

const maxOutputLines = 50

func (e Exec) Run(ctx context.Context, command string) Outcome {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if e.Dir != "" {
		cmd.Dir = e.Dir
	}

	out, err := cmd.CombinedOutput()
	outcome := Outcome{Output: Tail(string(out))}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			outcome.ExitCode = exitErr.ExitCode()
		} else {
			outcome.ExitCode = -1
			outcome.Err = err
		}
	}
	return outcome
}

// Tail keeps the last maxOutputLines lines of command output so diagnostic
// entries stay bounded.
func Tail(output string) string {
	output = strings.TrimSpace(output)
	lines := strings.Split(output, "\n")
	if len(lines) > maxOutputLines {
		lines = lines[len(lines)-maxOutputLines:]
		output = "...(truncated)...\n" + strings.Join(lines, "\n")
	}
	return output
}
