// Package postgres implements PostgreSQL-backed storage for the call-center
// bot using GORM. All GORM usage is confined to this package — domain types
// remain ORM-free. The SQLite backend reuses the same Store over the GORM
// SQLite dialect.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jkaninda/kituo/internal/storage"
)

// Config configures the PostgreSQL connection and pool.
type Config struct {
	DSN             string
	MaxOpenConns    int           // Default: 25
	MaxIdleConns    int           // Default: 5
	ConnMaxLifetime time.Duration // Default: 30m
}

func (c Config) maxOpen() int {
	if c.MaxOpenConns > 0 {
		return c.MaxOpenConns
	}
	return 25
}

func (c Config) maxIdle() int {
	if c.MaxIdleConns > 0 {
		return c.MaxIdleConns
	}
	return 5
}

func (c Config) maxLifetime() time.Duration {
	if c.ConnMaxLifetime > 0 {
		return c.ConnMaxLifetime
	}
	return 30 * time.Minute
}

// Open connects to PostgreSQL and configures the connection pool.
func Open(cfg Config, slogger *slog.Logger) (*Store, error) {
	gormLogger := logger.New(
		slogAdapter{slogger},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:      gormLogger,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.maxOpen())
	sqlDB.SetMaxIdleConns(cfg.maxIdle())
	sqlDB.SetConnMaxLifetime(cfg.maxLifetime())

	slogger.Info("postgres connected",
		slog.Int("max_open_conns", cfg.maxOpen()),
		slog.Int("max_idle_conns", cfg.maxIdle()),
	)

	return New(db, slogger, storage.DriverPostgres), nil
}

// Store implements storage.Store over a GORM connection. The driver name is
// injected so the SQLite backend can reuse the repository methods unchanged.
type Store struct {
	db      *gorm.DB
	logger  *slog.Logger
	driver  string
	observe func(op string, seconds float64) // nil = no instrumentation
}

// New wraps an already-open GORM connection.
func New(db *gorm.DB, slogger *slog.Logger, driver string) *Store {
	return &Store{db: db, logger: slogger, driver: driver}
}

// SetOperationObserver installs a callback that receives the duration of each
// store operation. Set once at startup, before the store is shared.
func (s *Store) SetOperationObserver(f func(op string, seconds float64)) {
	s.observe = f
}

// timeOp starts timing a store operation. Call the returned func on completion.
func (s *Store) timeOp(op string) func() {
	if s.observe == nil {
		return func() {}
	}
	start := time.Now()
	return func() { s.observe(op, time.Since(start).Seconds()) }
}

// GormDB returns the underlying *gorm.DB for tests and migrations.
func (s *Store) GormDB() *gorm.DB {
	return s.db
}

// Migrate creates or updates tables in FK-dependency order.
func (s *Store) Migrate(_ context.Context) error {
	return s.db.AutoMigrate(
		&ClientModel{},
		&AdminModel{},
		&RequestModel{},
		&AuditLogModel{},
	)
}

// Ping checks the database connection for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Driver returns the storage driver name.
func (s *Store) Driver() string {
	return s.driver
}

// slogAdapter wraps *slog.Logger for GORM's logger.Writer interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (s slogAdapter) Printf(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// compile-time interface check
var _ storage.Store = (*Store)(nil)
