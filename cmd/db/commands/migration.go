package commands

import (
	"context"
	"errors"

	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// ErrRollbackNotConfirmed is returned when rollback runs without --yes.
var ErrRollbackNotConfirmed = errors.New("rollback drops tracked players, rerun with --yes to confirm")

// MigrationCommands returns the schema commands of the tracking store.
func MigrationCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create the migration bookkeeping tables",
			Action: handleInit(deps),
		},
		{
			Name:   "migrate",
			Usage:  "Apply pending tracking store migrations",
			Action: handleMigrate(deps),
		},
		{
			Name:  "rollback",
			Usage: "Roll back the last applied migration group",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "yes",
					Usage: "Confirm that the rolled back tables may be dropped",
				},
			},
			Action: handleRollback(deps),
		},
		{
			Name:   "status",
			Usage:  "List every migration with its applied state",
			Action: handleStatus(deps),
		},
		{
			Name:      "create",
			Usage:     "Scaffold a new Go migration in the migrations package",
			ArgsUsage: "NAME",
			Action:    handleCreate(deps),
		},
	}
}

func handleInit(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}

		deps.Logger.Info("Migration tables ready")

		return nil
	}
}

func handleMigrate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		return withLock(ctx, deps.Migrator, func() error {
			ms, err := deps.Migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return err
			}

			pending := ms.Unapplied()
			if len(pending) == 0 {
				deps.Logger.Info("Tracking store schema is up to date")
				return nil
			}

			for _, m := range pending {
				deps.Logger.Info("Applying migration", zap.String("name", m.Name))
			}

			group, err := deps.Migrator.Migrate(ctx)
			if err != nil {
				return err
			}

			deps.Logger.Info("Migrated tracking store",
				zap.Int64("group", group.ID),
				zap.Int("count", len(group.Migrations)))

			return nil
		})
	}
}

func handleRollback(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if !c.Bool("yes") {
			return ErrRollbackNotConfirmed
		}

		return withLock(ctx, deps.Migrator, func() error {
			group, err := deps.Migrator.Rollback(ctx)
			if err != nil {
				return err
			}

			if group.IsZero() {
				deps.Logger.Info("Nothing to roll back")
				return nil
			}

			for _, m := range group.Migrations {
				deps.Logger.Info("Rolled back migration", zap.String("name", m.Name))
			}

			return nil
		})
	}
}

func handleStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}

		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}

		for _, m := range ms {
			fields := []zap.Field{zap.String("name", m.Name), zap.Bool("applied", m.IsApplied())}
			if m.IsApplied() {
				fields = append(fields, zap.Int64("group", m.GroupID), zap.Time("migratedAt", m.MigratedAt))
			}

			deps.Logger.Info("Migration", fields...)
		}

		deps.Logger.Info("Migration summary",
			zap.Int("applied", len(ms.Applied())),
			zap.Int("pending", len(ms.Unapplied())))

		return nil
	}
}

func handleCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		mf, err := deps.Migrator.CreateGoMigration(ctx, c.Args().First())
		if err != nil {
			return err
		}

		deps.Logger.Info("Created migration file", zap.String("path", mf.Path))

		return nil
	}
}

// withLock initializes the bookkeeping tables and holds the migration lock
// while fn runs.
func withLock(ctx context.Context, migrator *migrate.Migrator, fn func() error) error {
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	if err := migrator.Lock(ctx); err != nil {
		return err
	}
	defer migrator.Unlock(ctx) //nolint:errcheck // -

	return fn()
}
