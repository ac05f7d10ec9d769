package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/config"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/user"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "asocrista-server",
		Short: "ASOCRISTA clinic administration API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.TimeZone)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.TimeZone)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(context.Background(), cfg, newLogger(cfg, os.Stderr))
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			u, err := a.users.Create(context.Background(), user.NewUser{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     role,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created %s user %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("email", "", "Login email")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("role", auth.RoleStaff, "Role: staff or admin")
	createCmd.MarkFlagRequired("email")
	createCmd.MarkFlagRequired("password")
	cmd.AddCommand(createCmd)

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Daily report operations",
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the daily report for every active user",
		Long: "Generate the daily report for every active user and deliver it by email, " +
			"exactly as the scheduled job does. Use --no-send to only build and store the reports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			noSend, _ := cmd.Flags().GetBool("no-send")
			ctx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, newLogger(cfg, os.Stderr))
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if !noSend && strings.TrimSpace(date) == "" {
				res, err := a.daily.Run(ctx)
				if err != nil {
					return err
				}
				for _, o := range res.Succeeded {
					fmt.Printf("ok      %s report=%s\n", o.Email, o.ReportID)
				}
				for _, o := range res.Failed {
					fmt.Printf("failed  %s %s\n", o.Email, o.Error)
				}
				if len(res.Failed) > 0 {
					return fmt.Errorf("%d report(s) failed", len(res.Failed))
				}
				return nil
			}

			users, err := a.users.ListActive(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				rep, _, err := a.reports.Generate(ctx, u.ID, date)
				if err != nil {
					fmt.Printf("failed  %s %v\n", u.Email, err)
					continue
				}
				fmt.Printf("ok      %s %s balance=%s\n", u.Email, rep.Date, rep.Balance.StringFixed(2))
			}
			return nil
		},
	}
	generateCmd.Flags().String("date", "", "Report date (YYYY-MM-DD); defaults to today and implies delivery")
	generateCmd.Flags().Bool("no-send", false, "Build and store reports without emailing them")
	cmd.AddCommand(generateCmd)

	return cmd
}
