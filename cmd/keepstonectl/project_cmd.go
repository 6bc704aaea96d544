package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProjectCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Short:   "Manage per-project settings",
		GroupID: "settings",
	}

	initCmd := &cobra.Command{
		Use:   "init <project-id>",
		Short: "Seed a project's project-scoped settings from the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			n, err := c.projects.InitializeProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "project %d: seeded %d setting(s)\n", id, n)
			return err
		},
	}

	cmd.AddCommand(initCmd)
	return cmd
}
