package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/presencewatch/internal/database/migrations"
	"github.com/robalyx/presencewatch/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/extra/bunotel"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrUnknownDriver is returned for a storage driver other than postgres or sqlite.
var ErrUnknownDriver = errors.New("unknown storage driver")

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Client defines the methods that a database client must implement.
type Client interface {
	// Model returns the repository containing all model operations.
	Model() *Repository
	// Close gracefully shuts down the database connection.
	Close() error
	// DB returns the underlying bun.DB instance.
	DB() *bun.DB
}

// clientImpl represents the concrete implementation of the database client.
type clientImpl struct {
	db     *bun.DB
	logger *zap.Logger
	repo   *Repository
}

// Open creates a bun.DB for the configured driver without running migrations.
func Open(cfg *config.Storage, logger *zap.Logger) (*bun.DB, error) {
	bunjson.SetProvider(sonicProvider{})

	var db *bun.DB

	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres:
		pg := cfg.PostgreSQL
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithAddr(fmt.Sprintf("%s:%d", pg.Host, pg.Port)),
			pgdriver.WithUser(pg.User),
			pgdriver.WithPassword(pg.Password),
			pgdriver.WithDatabase(pg.DBName),
			pgdriver.WithInsecure(true),
			pgdriver.WithApplicationName("presencewatch"),
		))

		sqldb.SetMaxOpenConns(pg.MaxOpenConns)
		sqldb.SetMaxIdleConns(pg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(time.Duration(pg.MaxLifetime) * time.Minute)
		sqldb.SetConnMaxIdleTime(time.Duration(pg.MaxIdleTime) * time.Minute)

		db = bun.NewDB(sqldb, pgdialect.New())
		db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(pg.DBName)))

	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", sqliteDSN(cfg.SQLite.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}

		// A single connection serializes writers and keeps in-memory databases alive.
		sqldb.SetMaxOpenConns(1)
		sqldb.SetConnMaxLifetime(0)
		sqldb.SetConnMaxIdleTime(0)

		db = bun.NewDB(sqldb, sqlitedialect.New())
		db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.SQLite.Path)))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db.AddQueryHook(NewHook(logger))

	return db, nil
}

// NewConnection establishes a new database connection and returns a Client instance.
func NewConnection(
	ctx context.Context, cfg *config.Storage, logger *zap.Logger, autoMigrate bool,
) (Client, error) {
	db, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if autoMigrate {
		if err := Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	client := &clientImpl{
		db:     db,
		logger: logger,
		repo:   NewRepository(db, logger),
	}

	logger.Info("Database connection established", zap.String("driver", cfg.Driver))

	return client, nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if !group.IsZero() {
		logger.Info("Automatically ran migrations", zap.String("group", group.String()))
	}

	return nil
}

// Close gracefully shuts down the database connection.
func (c *clientImpl) Close() error {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}

// Model returns the repository containing all model operations.
func (c *clientImpl) Model() *Repository {
	return c.repo
}

// DB returns the underlying bun.DB instance.
func (c *clientImpl) DB() *bun.DB {
	return c.db
}

// sqliteDSN adds the pragmas file databases need for concurrent readers.
func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" || strings.Contains(path, "mode=memory") {
		return ":memory:"
	}

	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
