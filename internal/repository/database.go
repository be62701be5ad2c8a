package repository

import (
	"embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations
var migrations embed.FS

const migrationsDatabase = "tirek_dashboard"

// DB is an open store connection together with the statement builder that
// matches its placeholder style.
type DB struct {
	*sqlx.DB
	Builder sq.StatementBuilderType
}

// NewPostgresDB establishes a new connection to the PostgreSQL database.
func NewPostgresDB(dataSourceName string, logger *zap.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}

	logger.Info("Successfully connected to the database!", zap.String("driver", "postgres"))
	return &DB{DB: db, Builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}, nil
}

// NewSQLiteDB opens (creating if needed) a SQLite database file.
func NewSQLiteDB(path string, logger *zap.Logger) (*DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	logger.Info("Successfully connected to the database!", zap.String("driver", "sqlite"), zap.String("path", path))
	return &DB{DB: db, Builder: sq.StatementBuilder.PlaceholderFormat(sq.Question)}, nil
}

// MigrateDB runs the embedded migrations for the connection's driver.
func MigrateDB(db *DB, logger *zap.Logger) error {
	var (
		driver database.Driver
		dir    string
		err    error
	)

	switch db.DriverName() {
	case "postgres":
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	case "sqlite":
		dir = "migrations/sqlite"
		driver, err = sqlite.WithInstance(db.DB.DB, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported driver %q", db.DriverName())
	}
	if err != nil {
		return fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	source, err := iofs.New(migrations, dir)
	if err != nil {
		return fmt.Errorf("couldn't open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, migrationsDatabase, driver)
	if err != nil {
		return fmt.Errorf("couldn't create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}

	logger.Info("Database migration was run successfully", zap.String("driver", db.DriverName()))
	return nil
}
