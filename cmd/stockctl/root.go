package main

import (
	"encoding/json"
	"fmt"

	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds the state shared by every subcommand
type cli struct {
	configPath string
	logLevel   string
	tenant     string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "Operate the inventory ledger and order pipelines",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = logger.Sync(c.log)
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./config.toml, /etc/stockcore/config.toml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.tenant, "tenant", "", "tenant id")

	root.AddCommand(
		c.reconcileCmd(),
		c.rebuildCmd(),
		c.levelCmd(),
		c.movementsCmd(),
		c.transitionCmd(),
		c.migrateCmd(),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	c.cfg = cfg
	c.log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))
	return nil
}

func (c *cli) tenantID() (uuid.UUID, error) {
	if c.tenant == "" {
		return uuid.Nil, fmt.Errorf("--tenant is required")
	}
	id, err := uuid.Parse(c.tenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	return id, nil
}

// printJSON writes v to the command output as indented JSON
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseUUIDFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return id, nil
}
