package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn         *gorm.DB
	retryMax     uint64
	retryBackoff time.Duration
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Transactor runs a unit of work inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	if cfg.IsSQLite() {
		dialector = sqlite.Open(cfg.DSN)
	} else {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", cfg.Driver), "database connection established")
	}

	client := NewFromConn(conn)
	client.retryMax = cfg.TxRetryAttempts
	client.retryBackoff = cfg.TxRetryBackoff
	return client, nil
}

// NewFromConn wraps an already opened connection. Tests use it with sqlite.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn, retryMax: 3, retryBackoff: 10 * time.Millisecond}
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
// Serialization failures and deadlocks restart the whole transaction.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if c.retryMax == 0 {
		return c.runTx(ctx, fn)
	}

	backoff := retry.WithMaxRetries(c.retryMax, retry.NewExponential(c.retryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.runTx(ctx, fn)
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) runTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// InTx reports whether conn is bound to an open transaction.
func InTx(conn *gorm.DB) bool {
	if conn == nil || conn.Statement == nil {
		return false
	}
	committer, ok := conn.Statement.ConnPool.(gorm.TxCommitter)
	return ok && committer != nil
}

// Savepoint runs fn under a named savepoint when conn is a transaction, so a
// failed statement is undone without aborting the enclosing transaction.
// Outside a transaction fn runs directly.
func Savepoint(conn *gorm.DB, name string, fn func(tx *gorm.DB) error) error {
	if !InTx(conn) {
		return fn(conn)
	}
	if err := conn.SavePoint(name).Error; err != nil {
		return err
	}
	if err := fn(conn); err != nil {
		if rbErr := conn.RollbackTo(name).Error; rbErr != nil {
			return multierr.Append(err, rbErr)
		}
		return err
	}
	return conn.Exec("RELEASE SAVEPOINT " + name).Error
}
