package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beesaferoot/rental-booking/internal/migration"
)

func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the local catalog cache and apply its migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.migratedStore(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog cache initialized (%s: %s)\n", a.cfg.DBDriver, a.cfg.DatabaseURL)
			return nil
		},
	}
}

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the schema of the local catalog cache",
	}
	cmd.AddCommand(UpCmd(), DownCmd(), StatusCmd(), HistoryCmd(), ValidateCmd())
	return cmd
}

func UpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			out := cmd.OutOrStdout()

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			migrator := s.Migrator()

			pending, err := migrator.Pending(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(out, "No pending migrations.")
				return nil
			}

			if dryRun {
				fmt.Fprintln(out, "Pending migrations:")
				for _, m := range pending {
					fmt.Fprintf(out, "- %s (%s)\n", m.Name, m.Version)
				}
				return nil
			}

			applied, err := migrator.Up(cmd.Context())
			for _, m := range applied {
				fmt.Fprintf(out, "Successfully applied migration: %s\n", m.Name)
			}
			return err
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show pending migrations without executing them")
	return cmd
}

func DownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			reverted, err := s.Migrator().Down(cmd.Context())
			if errors.Is(err, migration.ErrNothingToRevert) {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations to revert.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully reverted migration: %s\n", reverted.Name)
			return nil
		},
	}
}

func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			statuses, err := s.Migrator().Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-16s  %-30s  %-8s\n", "Version", "Name", "Status")
			for _, st := range statuses {
				status := "Pending"
				if st.Applied {
					status = "Applied"
				}
				fmt.Fprintf(out, "%-16s  %-30s  %-8s\n", st.Version, st.Name, status)
			}
			return nil
		},
	}
}

func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show migration history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			records, err := s.Migrator().History(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No migrations applied.")
				return nil
			}
			fmt.Fprintf(out, "%-16s  %-30s  %-20s\n", "Version", "Name", "Applied At")
			for _, r := range records {
				fmt.Fprintf(out, "%-16s  %-30s  %-20s\n", r.Version, r.Name, r.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func ValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate all migrations",
		Long:  `Checks that the registered migrations are complete and uniquely versioned, and that the catalog cache tables match the record models.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			if err := migration.Validate(s.Migrator().Migrations()); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			diff, err := s.SchemaDiff(cmd.Context())
			if err != nil {
				return err
			}
			if !diff.IsEmpty() {
				return fmt.Errorf("catalog cache schema is out of date, run migrate up:\n%s", diff)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All migrations are valid")
			return nil
		},
	}
}
