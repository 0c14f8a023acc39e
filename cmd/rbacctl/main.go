package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/pkg/rbac"
	"github.com/spf13/cobra"
)

// exitDenied is returned by check when the decision is a deny
const exitDenied = 2

// cli carries the state shared by every subcommand
type cli struct {
	env    string
	engine *rbac.Engine
	logger lager.Logger
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// exitCode ends the process with a specific status without printing
type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit status %d", int(c)) }

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "rbacctl",
		Short: "Operator tool for the Rolegate role and user directory",
		Long: `Operator tool for the Rolegate role and user directory.
Reads and changes the stored directory configured by .env.<env> and the
SNAPSHOT_* environment variables, and answers authorization questions.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.open,
		PersistentPostRunE: c.close,
	}
	root.PersistentFlags().StringVarP(&c.env, "env", "e", "dev", "Environment to use (dev, test, prod)")

	root.AddCommand(
		newRolesCmd(c),
		newUsersCmd(c),
		newCheckCmd(c),
		newPermissionsCmd(c),
		newWhoCmd(c),
		newStatsCmd(c),
		newExportCmd(c),
		newImportCmd(c),
		newSeedCmd(c),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command, args []string) error {
	cfg, err := rbac.LoadConfig(c.env)
	if err != nil {
		return err
	}

	// Logs go to stderr so command output stays parseable
	c.logger = lager.NewLogger("rbacctl")
	c.logger.RegisterSink(lager.NewWriterSink(cmd.ErrOrStderr(), lager.ERROR))

	c.engine, err = rbac.Open(cmd.Context(), cfg, rbac.Options{Logger: c.logger})
	return err
}

func (c *cli) close(cmd *cobra.Command, args []string) error {
	if c.engine == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return c.engine.Close(ctx)
}
