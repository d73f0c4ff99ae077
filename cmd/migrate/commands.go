package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/config"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/storage/postgres"
)

// runner opens a migrate instance against the configured database for each
// command.
type runner struct {
	cfg    *config.Config
	logger *zap.Logger
}

func (r *runner) run(ctx context.Context, name string, fn func(m *migrate.Migrate) error) subcommands.ExitStatus {
	db, err := postgres.Open(ctx, r.cfg.Database.DSN(), r.logger)
	if err != nil {
		r.logger.Error("connect database", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		r.logger.Error("init migrate driver", zap.Error(err))
		return subcommands.ExitFailure
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+r.cfg.Database.MigrationsDir, "postgres", driver)
	if err != nil {
		r.logger.Error("load migrations", zap.String("dir", r.cfg.Database.MigrationsDir), zap.Error(err))
		return subcommands.ExitFailure
	}

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		r.logger.Error("migration failed", zap.String("command", name), zap.Error(err))
		return subcommands.ExitFailure
	}
	r.logger.Info("migration complete", zap.String("command", name))
	return subcommands.ExitSuccess
}

type upCmd struct{ runner *runner }

func (*upCmd) Name() string             { return "up" }
func (*upCmd) Synopsis() string         { return "apply all pending migrations" }
func (*upCmd) Usage() string            { return "migrate up\n" }
func (*upCmd) SetFlags(f *flag.FlagSet) {}

func (c *upCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.runner.run(ctx, c.Name(), func(m *migrate.Migrate) error { return m.Up() })
}

type downCmd struct{ runner *runner }

func (*downCmd) Name() string             { return "down" }
func (*downCmd) Synopsis() string         { return "roll back every migration" }
func (*downCmd) Usage() string            { return "migrate down\n" }
func (*downCmd) SetFlags(f *flag.FlagSet) {}

func (c *downCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.runner.run(ctx, c.Name(), func(m *migrate.Migrate) error { return m.Down() })
}

type stepsCmd struct {
	runner *runner
	n      int
}

func (*stepsCmd) Name() string     { return "steps" }
func (*stepsCmd) Synopsis() string { return "apply (n > 0) or roll back (n < 0) n migrations" }
func (*stepsCmd) Usage() string {
	return `migrate steps -n <count>

  Moves the schema n versions forward, or back when n is negative.
`
}
func (c *stepsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", 0, "number of migrations to apply; negative rolls back")
}

func (c *stepsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.n == 0 {
		fmt.Println("steps: -n must not be zero")
		return subcommands.ExitUsageError
	}
	return c.runner.run(ctx, c.Name(), func(m *migrate.Migrate) error { return m.Steps(c.n) })
}

type dropCmd struct{ runner *runner }

func (*dropCmd) Name() string             { return "drop" }
func (*dropCmd) Synopsis() string         { return "drop everything in the database" }
func (*dropCmd) Usage() string            { return "migrate drop\n" }
func (*dropCmd) SetFlags(f *flag.FlagSet) {}

func (c *dropCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.runner.run(ctx, c.Name(), func(m *migrate.Migrate) error { return m.Drop() })
}

type versionCmd struct{ runner *runner }

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print the current schema version" }
func (*versionCmd) Usage() string            { return "migrate version\n" }
func (*versionCmd) SetFlags(f *flag.FlagSet) {}

func (c *versionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.runner.run(ctx, c.Name(), func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			c.runner.logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		c.runner.logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	})
}
