package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSettingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		Short:   "Inspect and change global settings",
		GroupID: "settings",
	}

	show := &cobra.Command{
		Use:   "show [key]",
		Short: "Print the effective settings, or one value by dotted key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				tree, err := c.resolver.Resolve(ctx)
				if err != nil {
					return err
				}
				return c.printValue(tree)
			}
			v, err := c.resolver.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			return c.printValue(v)
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Override an editable setting",
		Long: "Override an editable setting. The value is converted to the " +
			"setting's declared type; lists and maps are given as JSON.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.resolver.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(c.out, "%s updated\n", args[0])
			return err
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Discard all overrides and restore the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.resolver.Reset(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(c.out, "settings reset to defaults")
			return err
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Insert missing overrides for editable settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.resolver.Initialize(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "seeded %d setting(s)\n", n)
			return err
		},
	}

	cmd.AddCommand(show, set, reset, seed)
	return cmd
}
