package main

import (
	"errors"
	"os"
	"strconv"

	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/internal/infrastructure/config"
	"github.com/asakaida/rolegate/internal/infrastructure/database"
	"github.com/asakaida/rolegate/internal/infrastructure/logging"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var (
	envFlag string
	logger  lager.Logger
	pg      *database.Postgres
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Snapshot schema migration tool for Rolegate",
	Long: `Snapshot schema migration tool for Rolegate.
Manages the PostgreSQL snapshots table using golang-migrate and the
migrations embedded in the binary.`,
	PersistentPreRunE: setupDatabase,
	SilenceUsage:      true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long:  `Apply all pending migrations to the database.`,
	RunE:  runUp,
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations",
	Long:  `Rollback the specified number of migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDown,
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Long:  `Migrate to a specific version number.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGoto,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	Long:  `Display the current migration version of the database.`,
	RunE:  runVersion,
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Long:  `Force set the migration version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runForce,
}

func init() {
	// Add global --env flag to all commands
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	// Add subcommands
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forceCmd)
}

func main() {
	logger = lager.NewLogger("migrate")
	logger.RegisterSink(lager.NewWriterSink(os.Stderr, lager.INFO))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("failed-to-execute-command", err)
		os.Exit(1)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) error {
	// Initialize configuration from .env.{env} file
	if err := config.InitConfig(envFlag); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if l, _, err := logging.New("migrate", cfg.Log.Level, os.Stderr); err == nil {
		logger = l
	}
	logger.Info("using-environment", lager.Data{"env": envFlag})

	// Connect to database
	pg, err = database.NewPostgres(&cfg.Database)
	if err != nil {
		return err
	}

	logger.Info("connected", lager.Data{
		"user":     cfg.Database.User,
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})
	return nil
}

func runUp(cmd *cobra.Command, args []string) error {
	m, err := pg.NewMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	return report(err, "up", lager.Data{})
}

func runDown(cmd *cobra.Command, args []string) error {
	steps := 1 // Default: rollback 1 migration
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return errors.New("steps must be a positive integer")
		}
		steps = n
	}

	m, err := pg.NewMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Steps(-steps)
	return report(err, "down", lager.Data{"steps": steps})
}

func runGoto(cmd *cobra.Command, args []string) error {
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return errors.New("version must be a non-negative integer")
	}

	m, err := pg.NewMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Migrate(uint(version))
	return report(err, "goto", lager.Data{"version": version})
}

func runVersion(cmd *cobra.Command, args []string) error {
	m, err := pg.NewMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("no-migrations-applied")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("current-version", lager.Data{"version": version, "dirty": dirty})
	return nil
}

func runForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.New("version must be an integer")
	}

	m, err := pg.NewMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Force(version); err != nil {
		return err
	}

	logger.Info("forced", lager.Data{"version": version})
	return nil
}

// report logs the outcome of a migration step. ErrNoChange is not a failure.
func report(err error, action string, data lager.Data) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info(action+"-no-change", data)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(action+"-completed", data)
	return nil
}
