package database

import (
	"fmt"
	"time"

	"github.com/primabonus/backend/internal/config"
	"github.com/primabonus/backend/internal/database/migrations"
	"github.com/primabonus/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate runs an AutoMigrate pass for model columns first, then the
// versioned migrations which layer the unique idempotency indexes on top.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}
	return migrations.RunMigrations(db)
}

// AutoMigrate migrates all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Users and contracts
		&models.User{},
		&models.Brand{},
		&models.UserContract{},
		&models.BrandBonus{},
		&models.UserContractGoal{},
		&models.GoalEvaluation{},

		// Ingestion
		&models.FileUpload{},
		&models.Invoice{},
		&models.InvoiceBrandTurnover{},

		// Ledger and rewards
		&models.PointsTransaction{},
		&models.Reward{},
		&models.RewardRequest{},
		&models.RewardRequestItem{},

		// Notifications
		&models.EmailNotification{},
	)
}
