package persistence

import (
	"database/sql"
	"fmt"

	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// DriverPostgres is the production driver
	DriverPostgres = "postgres"
	// DriverSQLite is used for tests and single-node tooling
	DriverSQLite = "sqlite"
)

// Database is an open gorm connection and the driver it speaks
type Database struct {
	DB     *gorm.DB
	Driver string
}

// Option configures NewDatabase
type Option func(*options)

type options struct {
	logger      *zap.Logger
	logLevel    gormlogger.LogLevel
	autoMigrate bool
}

// WithLogger routes GORM logs through zap at the given level (silent, error, warn, info)
func WithLogger(l *zap.Logger, level string) Option {
	return func(o *options) {
		o.logger = l
		o.logLevel = logger.MapGormLogLevel(level)
	}
}

// WithAutoMigrate creates the schema from the entity definitions after connecting.
// Postgres deployments use the SQL migrations instead.
func WithAutoMigrate() Option {
	return func(o *options) {
		o.autoMigrate = true
	}
}

// NewDatabase opens the configured database, sizes its pool and installs the tenant guard
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := options{logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(&o)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	dialector, err := dialectorFor(driver, cfg.DSN())
	if err != nil {
		return nil, err
	}

	gcfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(o.logLevel),
		SkipDefaultTransaction: true,
		PrepareStmt:            driver == DriverPostgres,
		TranslateError:         true,
	}
	if o.logger != nil {
		gcfg.Logger = logger.NewGormLogger(o.logger, o.logLevel)
	}
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	d := &Database{DB: db, Driver: driver}
	sqlDB, err := d.sqlDB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; one connection turns lock contention into queueing
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	if err := tenant.Install(db); err != nil {
		return nil, err
	}
	if o.autoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers
func (d *Database) Ping() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Stats returns the connection pool statistics
func (d *Database) Stats() (sql.DBStats, error) {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

// TransactionScope returns a TransactionScope over this database
func (d *Database) TransactionScope(l *zap.Logger) *GormTransactionScope {
	return NewGormTransactionScope(d.DB, d.Driver, l)
}
