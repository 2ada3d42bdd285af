package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/phrazzld/scry-kanji/internal/platform/sqlstore"
	"github.com/spf13/cobra"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply, roll back or inspect the schema migrations of the configured
database. Opening the store applies pending migrations automatically;
these commands are for inspection and rollback.`,
	}
	cmd.AddCommand(
		c.migrationCmd("up", "Apply all pending migrations", func(cmd *cobra.Command, m *sqlstore.Migrator) error {
			return m.Up(cmd.Context())
		}),
		c.migrationCmd("down", "Roll back the most recent migration", func(cmd *cobra.Command, m *sqlstore.Migrator) error {
			return m.Down(cmd.Context())
		}),
		c.migrationCmd("status", "List migrations and whether they are applied", printMigrationStatus),
	)
	return cmd
}

func (c *cli) migrationCmd(use, short string, run func(*cobra.Command, *sqlstore.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			log, err := c.logger(cmd, cfg)
			if err != nil {
				return err
			}

			db, target, err := sqlstore.Connect(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			m, err := sqlstore.NewMigrator(db, target.Dialect, log)
			if err != nil {
				return err
			}
			if err := run(cmd, m); err != nil {
				return err
			}

			v, err := m.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		},
	}
}

func printMigrationStatus(cmd *cobra.Command, m *sqlstore.Migrator) error {
	statuses, err := m.Status(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Path, state)
	}
	return w.Flush()
}
