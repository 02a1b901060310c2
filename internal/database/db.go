package database

import (
	"fmt"
	"time"

	"cashup-backend/internal/config"
	"cashup-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates the schema. AutoMigrate cannot express the partial index
// that allows only one current version per closure identity, so it is
// created by hand.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(
		&models.Business{},
		&models.Personnel{},
		&models.Outlet{},
		&models.StaffPosition{},
		&models.TillClosure{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_till_closures_current
		ON till_closures (identity) WHERE version_superseded_time IS NULL`).Error; err != nil {
		return fmt.Errorf("create current version index: %w", err)
	}

	log.Info("database migrated")
	return nil
}
