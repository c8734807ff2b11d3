// Package database opens the primary gorm store on postgres or mysql.
package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/pkg/logger"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Type            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	return c
}

// Open connects, pings and wraps the connection in gorm
func Open(cfg Config) (*gorm.DB, error) {
	cfg = cfg.withDefaults()

	var driverName string
	switch cfg.Type {
	case constants.DatabaseTypePostgres:
		driverName = "postgres"
	case constants.DatabaseTypeMySQL:
		driverName = "mysql"
		dsn, err := normalizeMySQLDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		cfg.DSN = dsn
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Type, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	var dialector gorm.Dialector
	if cfg.Type == constants.DatabaseTypePostgres {
		dialector = postgres.New(postgres.Config{Conn: db})
	} else {
		dialector = mysql.New(mysql.Config{Conn: db})
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(cfg.Debug)})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create GORM connection: %w", err)
	}

	logger.Named("database").Info("connected to primary store", zap.String("type", cfg.Type))
	return gormDB, nil
}

// Close releases the underlying pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	return sqlDB.Close()
}

// Migrate creates or updates the tables of the given models
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}

// normalizeMySQLDSN forces parseTime so DATETIME columns scan into time.Time
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}

type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Infof(strings.TrimSpace(format), args...)
}

func newGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(zapWriter{log: logger.Named("gorm").Sugar()}, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
