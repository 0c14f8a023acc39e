package main

import (
	"fmt"
	"time"

	"github.com/asakaida/rolegate/internal/repositories/codec"
	"github.com/asakaida/rolegate/pkg/rbac"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// fs is where export and import read and write files
var fs = afero.NewOsFs()

func newExportCmd(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the directory as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := codec.JSON{}.Encode(c.engine.Snapshot())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			return afero.WriteFile(fs, out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the directory with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := afero.ReadFile(fs, args[0])
			if err != nil {
				return err
			}
			snap, err := codec.JSON{}.Decode(data)
			if err != nil {
				return err
			}
			if err := c.engine.Restore(snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d roles, %d users\n", len(snap.Roles), len(snap.Users))
			return nil
		},
	}
}

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace the directory with the demo roles and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.engine.Restore(rbac.Seed(time.Now()))
		},
	}
}
