package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/config"
	"github.com/spec-kit/ticketflow/internal/observability"
	"github.com/spec-kit/ticketflow/internal/persistence"
	"github.com/spec-kit/ticketflow/internal/repository"
	"github.com/spec-kit/ticketflow/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "ticketadm",
	Short: "ticketflow administration",
	Long: `ticketadm runs operator tasks against the ticketflow database:
applying migrations, creating the super admin that roots a tenant, and
printing the role table the API enforces.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(migrateCmd(), bootstrapCmd(), rolesCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TICKETFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("dsn", "", "postgres DSN (defaults to POSTGRES_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (defaults to LOG_LEVEL)")
	_ = viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig layers flag and TICKETFLOW_* values over the service env config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dsn := viper.GetString("dsn"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.Logger.Level = level
	}
	return cfg, nil
}

// withDatabase opens the pool, runs fn and closes everything afterwards.
func withDatabase(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("a postgres DSN is required (--dsn, TICKETFLOW_DSN or POSTGRES_DSN)")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	return fn(ctx, cfg, pg, logger)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, _ *config.Config, pg *persistence.Postgres, logger *zap.Logger) error {
				if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
					return err
				}
				files, err := persistence.MigrationFiles()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration file(s)\n", len(files))
				return nil
			})
		},
	}
}

func bootstrapCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create a super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" || password == "" {
				return errors.New("--name, --email and --password are required")
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) error {
				pool := pg.PoolHandle()
				authService := service.NewAuthService(*cfg, service.AuthDependencies{
					UserRepo: repository.NewUserRepository(pool),
					TeamRepo: repository.NewTeamRepository(pool),
					Logger:   logger,
				})
				user, err := authService.BootstrapSuperAdmin(ctx, name, email, password)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role"})
				tw.AppendRow(table.Row{user.ID, user.Name, user.Email, user.Role})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	return cmd
}

func rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Print the role hierarchy and the minimum role per action",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderRoles(cmd.OutOrStdout())
			return nil
		},
	}
}
