// Package db opens the database, applies migrations and seeds demo data.
package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diewo77/go-timesheets/internal/config"
	"github.com/diewo77/go-timesheets/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var passwordPattern = regexp.MustCompile(`(password=|://[^:/@]+:)([^\s@]+)`)

// MaskDSN hides the password of a key=value or URL DSN for logging.
func MaskDSN(dsn string) string {
	return passwordPattern.ReplaceAllString(dsn, `${1}***`)
}

// GormConfig is shared by the server and tests: UTC timestamps and driver
// errors translated to gorm.ErrDuplicatedKey and friends.
func GormConfig(log *logger.Logger, debug bool) *gorm.Config {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.New(log.StdLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// Open connects with exponential backoff until the database answers
// SELECT 1 or cfg.MaxRetries attempts have failed.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	log.Infow("connecting to database", "driver", cfg.Driver, "dsn", MaskDSN(cfg.DSN()))

	var conn *gorm.DB
	op := func() error {
		db, err := gorm.Open(dialector, GormConfig(log, cfg.Debug))
		if err != nil {
			return err
		}
		if err := db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
			return err
		}
		conn = db
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.MaxRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.Warnw("database not ready, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	return conn, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
