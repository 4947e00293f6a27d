package database

import (
	"fmt"
	"time"

	"beverage-backend/internal/config"
	"beverage-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres, bounds the pool and migrates the schema.
func Open(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db, log); err != nil {
		return nil, err
	}
	log.Info("database connected, migration complete")
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB, log logrus.FieldLogger) error {
	// Older schemas stored order_date as a date column; widen it before
	// AutoMigrate compares types.
	if db.Dialector.Name() == "postgres" && db.Migrator().HasTable(&models.Order{}) {
		var dataType string
		db.Raw(`SELECT data_type FROM information_schema.columns
			WHERE table_name = 'orders' AND column_name = 'order_date'`).Scan(&dataType)
		if dataType == "date" {
			log.Info("widening orders.order_date to timestamptz")
			if err := db.Exec("ALTER TABLE orders ALTER COLUMN order_date TYPE timestamptz").Error; err != nil {
				return fmt.Errorf("widen order_date: %w", err)
			}
		}
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Beverage{},
		&models.Order{},
		&models.InventoryTransaction{},
		&models.UserSession{},
		&models.Rating{},
		&models.Favorite{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
