// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conveyorci/conveyor/internal/phases"
)

// NewRootCmd constructs the conveyor root command. One positional phase
// command is executed per CI job invocation; the process exit code is the
// only signal the scheduler observes.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("CONVEYOR_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "conveyor",
		Short:         "Conveyor - native CI pipeline jobs",
		Long:          "Conveyor runs the native jobs of a CI workflow: image builds, workflow configuration, and finalization.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of Conveyor",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "conveyor version %s\n", version)
		},
	})

	cmd.AddCommand(newPhaseCmd("docker-build",
		"Build and publish all images the workflow declares", phases.RunDockerBuild))
	cmd.AddCommand(newPhaseCmd("configure",
		"Validate the workflow and produce its RunConfig", phases.RunConfigure))
	cmd.AddCommand(newPhaseCmd("finish",
		"Reconcile job results and publish the merge-readiness decision", phases.RunFinish))

	return cmd
}

func newPhaseCmd(use, short string, run func(context.Context, *phases.Deps) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := buildDeps()
			if err != nil {
				return err
			}
			defer cleanup()
			return run(cmd.Context(), deps)
		},
	}
}
