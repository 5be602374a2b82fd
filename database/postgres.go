package database

import (
	"context"
	"fmt"
	"time"

	"github.com/GuilhermeXavier08/mythic/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode, c.TimeZone,
	)
}

const connectAttempts = 10

// ConnectPostgres opens the pool, retrying while the database comes up.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
			TranslateError: true,
		})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}
			logger.Info("Connected to PostgreSQL successfully")
			return db, nil
		}

		logger.Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
}

// Migrate creates or updates every table this service owns. Games are read
// from the catalog's table and are migrated here only so foreign keys resolve
// in a standalone database.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto: %w", err)
	}
	return db.AutoMigrate(
		&models.Game{},
		&models.Coupon{},
		&models.Cart{},
		&models.CartLine{},
		&models.Purchase{},
		&models.WishlistEntry{},
		&models.PaymentAttestation{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Notification{},
	)
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
