package main

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/stockcore/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func (c *cli) migrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Applies the versioned SQL migrations of the ledger schema. SQLite databases are
migrated automatically when opened and are rejected here.`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", defaultMigrationsPath, "migrations directory")

	// withMigrator opens the configured database and runs fn against it
	withMigrator := func(fn func(m *migration.Migrator) error) error {
		if c.cfg.Database.Driver != "postgres" {
			return fmt.Errorf("migrate requires database.driver postgres, got %q", c.cfg.Database.Driver)
		}
		db, err := sql.Open("postgres", c.cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		m, err := migration.New(db, path, c.log)
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				c.log.Warn("closing migrator", zap.Error(err))
			}
		}()
		return fn(m)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migration.Migrator) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every applied migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migration.Migrator) error { return m.Down() })
			},
		},
		&cobra.Command{
			Use:   "step N",
			Short: "Apply N migrations, or roll back when N is negative",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("step needs a non-zero integer, got %q", args[0])
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Steps(n) })
			},
		},
		&cobra.Command{
			Use:   "goto VERSION",
			Short: "Migrate up or down to VERSION",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return withMigrator(func(m *migration.Migrator) error { return m.GoTo(uint(v)) })
			},
		},
		&cobra.Command{
			Use:     "status",
			Aliases: []string{"version"},
			Short:   "Show the applied version and pending migrations",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migration.Migrator) error {
					status, err := m.Status()
					if err != nil {
						return err
					}
					return printJSON(cmd, status)
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Record VERSION as applied and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Force(v) })
			},
		},
		c.migrateDropCmd(withMigrator),
		&cobra.Command{
			Use:   "create NAME [DESCRIPTION]",
			Short: "Create an empty up/down migration pair",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				desc := args[0]
				if len(args) == 2 {
					desc = args[1]
				}
				mf, err := migration.CreateMigration(path, args[0], desc, time.Now())
				if err != nil {
					return err
				}
				return printJSON(cmd, mf)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the migrations on disk",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				names, err := migration.ListMigrations(path)
				if err != nil {
					return err
				}
				return printJSON(cmd, names)
			},
		},
	)
	return cmd
}

func (c *cli) migrateDropCmd(withMigrator func(func(*migration.Migrator) error) error) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every table, ledger history included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("drop deletes all data; pass --confirm to proceed")
			}
			if c.cfg.App.Env == "production" {
				return fmt.Errorf("drop is disabled in production")
			}
			return withMigrator(func(m *migration.Migrator) error { return m.Drop() })
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm dropping the schema")
	return cmd
}
