package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatline/internal/shared/config"
	applog "seatline/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds database connections. Redis is nil when disabled.
type DB struct {
	PostgreSQL *gorm.DB
	Redis      *redis.Client
}

// InitDB connects to PostgreSQL, migrates the schema and connects to Redis
// when enabled
func InitDB(cfg *config.Config) (*DB, error) {
	pg, err := initPostgreSQL(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	if err := Migrate(pg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := MigrateConstraints(pg); err != nil {
		return nil, fmt.Errorf("failed to apply constraints: %w", err)
	}

	db := &DB{PostgreSQL: pg}
	if cfg.Redis.Enabled {
		rdb, err := initRedis(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		db.Redis = rdb
	}
	return db, nil
}

func initPostgreSQL(cfg *config.Config) (*gorm.DB, error) {
	var gormLogger logger.Interface
	if cfg.IsDevelopment() {
		gormLogger = logger.Default.LogMode(logger.Info)
	} else {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
		// Unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	applog.GetDefault().Info("PostgreSQL connected", "host", cfg.Database.Host, "database", cfg.Database.Name)
	return db, nil
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,

		PoolSize:     10,
		MinIdleConns: 5,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  cfg.Redis.OperationLimit,
		WriteTimeout: cfg.Redis.OperationLimit,
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	applog.GetDefault().Info("Redis connected", "addr", cfg.Redis.Addr)
	return rdb, nil
}

// Close closes all database connections
func (db *DB) Close() error {
	var errs []error

	if db.PostgreSQL != nil {
		if sqlDB, err := db.PostgreSQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close PostgreSQL: %w", err))
			}
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthCheck pings every configured backend
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.PostgreSQL != nil {
		sqlDB, err := db.PostgreSQL.DB()
		if err != nil {
			return fmt.Errorf("PostgreSQL health check failed: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("PostgreSQL ping failed: %w", err)
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}
