package migrations

import (
	"errors"
	"fmt"
	"os"

	"travyy/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/uptrace/bun"
)

type Options struct {
	// Dir holds NNNNNN_name.up.sql / .down.sql pairs.
	Dir string
	// SchemaVersion is the last schema-only migration. Later versions carry seed data.
	SchemaVersion uint
	Seed          bool
}

func DefaultOptions() Options {
	return Options{Dir: "./migrations", SchemaVersion: 1}
}

// Status is the state recorded in schema_migrations.
type Status struct {
	Version uint
	Dirty   bool
	Empty   bool
}

func (s Status) String() string {
	switch {
	case s.Empty:
		return "no migrations applied"
	case s.Dirty:
		return fmt.Sprintf("version %d (dirty)", s.Version)
	default:
		return fmt.Sprintf("version %d", s.Version)
	}
}

// Runner applies the SQL files in Options.Dir to the bun database.
type Runner struct {
	db     *bun.DB
	opts   Options
	m      *migrate.Migrate
	logger *logger.Logger
}

func NewRunner(db *bun.DB, opts Options, log *logger.Logger) *Runner {
	return &Runner{db: db, opts: opts, logger: log}
}

func (r *Runner) migrator() (*migrate.Migrate, error) {
	if r.m != nil {
		return r.m, nil
	}
	if _, err := os.Stat(r.opts.Dir); err != nil {
		return nil, fmt.Errorf("migrations dir %s: %w", r.opts.Dir, err)
	}
	driver, err := postgres.WithInstance(r.db.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+r.opts.Dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	r.m = m
	return m, nil
}

func (r *Runner) Status() (Status, error) {
	m, err := r.migrator()
	if err != nil {
		return Status{}, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{Empty: true}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Up brings the schema to SchemaVersion, or to the newest file when Seed is set.
// A dirty version left by a failed run is forced clean first.
func (r *Runner) Up() error {
	m, err := r.migrator()
	if err != nil {
		return err
	}
	st, err := r.Status()
	if err != nil {
		return err
	}
	if st.Dirty {
		r.logger.Warn("MIGRATE", fmt.Sprintf("forcing dirty version %d", st.Version))
		if err := m.Force(int(st.Version)); err != nil {
			return fmt.Errorf("force version %d: %w", st.Version, err)
		}
	}

	switch target, ok := upTarget(r.opts, st); {
	case !ok:
		r.logger.Info("MIGRATE", fmt.Sprintf("schema already at %s", st))
		return nil
	case target == 0:
		r.logger.Info("MIGRATE", "applying all migrations including seed data")
		err = m.Up()
	default:
		r.logger.Info("MIGRATE", fmt.Sprintf("applying schema migrations up to %d", target))
		err = m.Migrate(target)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	if st, err = r.Status(); err != nil {
		return err
	}
	r.logger.LogDatabase("UP", "schema_migrations", st.String())
	return nil
}

// upTarget returns the version Up should stop at. Zero means the newest file.
// ok is false when nothing needs to run.
func upTarget(opts Options, st Status) (target uint, ok bool) {
	if opts.Seed {
		return 0, true
	}
	if st.Empty || st.Version < opts.SchemaVersion {
		return opts.SchemaVersion, true
	}
	return 0, false
}

// Down rolls back every applied migration.
func (r *Runner) Down() error {
	m, err := r.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	r.logger.LogDatabase("DOWN", "schema_migrations", "all migrations rolled back")
	return nil
}

func (r *Runner) To(version uint) error {
	m, err := r.migrator()
	if err != nil {
		return err
	}
	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate to %d: %w", version, err)
	}
	r.logger.LogDatabase("MIGRATE", "schema_migrations", fmt.Sprintf("version %d", version))
	return nil
}

func (r *Runner) Close() error {
	if r.m == nil {
		return nil
	}
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}
