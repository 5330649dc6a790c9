package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"bookshelf/internal/platform/postgres"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Run database migrations.

Subcommands:
  up      - Apply pending migrations
  down    - Roll back the latest migration
  status  - Show migration status
  create  - Create a new SQL migration in MIGRATIONS_DIR`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, opts, func(m *postgres.Migrator) error {
				versions, err := m.Up(cmd.Context())
				if err != nil {
					return fmt.Errorf("apply migrations: %w", err)
				}
				if len(versions) == 0 {
					cmd.Println("No pending migrations")
					return nil
				}
				cmd.Printf("Applied migrations: %v\n", versions)
				return nil
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, opts, func(m *postgres.Migrator) error {
				version, err := m.Down(cmd.Context())
				if errors.Is(err, goose.ErrNoNextVersion) {
					cmd.Println("Nothing to roll back")
					return nil
				}
				if err != nil {
					return fmt.Errorf("roll back migration: %w", err)
				}
				cmd.Printf("Rolled back migration %d\n", version)
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, opts, func(m *postgres.Migrator) error {
				states, err := m.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("migration status: %w", err)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
				for _, s := range states {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, state, s.Path)
				}
				return w.Flush()
			})
		},
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a new SQL migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			if err := goose.Create(nil, migrationsDir(), name, "sql"); err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			cmd.Printf("Migration created: %s\n", name)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Migration name")

	cmd.AddCommand(up, down, status, create)
	return cmd
}

func withMigrator(cmd *cobra.Command, opts *options, fn func(*postgres.Migrator) error) error {
	fsys, err := migrationsFS()
	if err != nil {
		return err
	}
	pool, err := opts.openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	m, err := postgres.NewMigrator(pool, fsys)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
