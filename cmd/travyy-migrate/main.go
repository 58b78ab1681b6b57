package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"travyy/internal/auth"
	"travyy/internal/config"
	"travyy/internal/database"
	"travyy/internal/database/migrations"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/user"
	userdb "travyy/internal/user/db"
	"travyy/internal/utils"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

var (
	migrationsDir string
	withSeed      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "travyy-migrate",
		Short:        "Database migrations and seeding for Travyy",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "./migrations", "directory holding the SQL migrations")

	rootCmd.AddCommand(upCmd())
	rootCmd.AddCommand(downCmd())
	rootCmd.AddCommand(toCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connect(ctx context.Context, log *logger.Logger) (*bun.DB, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	return database.Connect(ctx, cfg.DSN, database.PoolOptions{
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		MaxLifetime:  time.Minute,
	}, log)
}

func withRunner(fn func(r *migrations.Runner) error) error {
	log := logger.NewServiceLogger("travyy-migrate")
	defer log.Close()

	db, err := connect(context.Background(), log)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := migrations.DefaultOptions()
	opts.Dir = migrationsDir
	opts.Seed = withSeed

	runner := migrations.NewRunner(db, opts, log)
	defer runner.Close()
	return fn(runner)
}

func upCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations (and seed data with --seed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(r *migrations.Runner) error {
				return r.Up()
			})
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "also apply the seed data migrations")
	return cmd
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(r *migrations.Runner) error {
				return r.Down()
			})
		},
	}
}

func toCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to [version]",
		Short: "Migrate up or down to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withRunner(func(r *migrations.Runner) error {
				return r.To(uint(version))
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the applied migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(r *migrations.Runner) error {
				st, err := r.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
}

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account from ADMIN_EMAIL / ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := config.LoadAdminSeed()
			if err != nil {
				return err
			}

			log := logger.NewServiceLogger("travyy-migrate")
			defer log.Close()

			ctx := context.Background()
			db, err := connect(ctx, log)
			if err != nil {
				return err
			}
			defer db.Close()

			created, err := seedAdmin(ctx, &userdb.DB{Bun: db}, seed, time.Now().UTC())
			if err != nil {
				return err
			}
			if created {
				log.Info("SEED", fmt.Sprintf("Admin %s created", seed.Email))
			} else {
				log.Info("SEED", fmt.Sprintf("Admin %s already exists", seed.Email))
			}
			return nil
		},
	}
}

type adminStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

// seedAdmin is idempotent: an existing account with the same email is left untouched.
func seedAdmin(ctx context.Context, store adminStore, seed *config.AdminSeed, now time.Time) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if _, err := store.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		ID:           utils.GenerateID(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     seed.FullName,
		Role:         models.RoleAdmin,
		Status:       models.UserActive,
		AuthProvider: auth.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
