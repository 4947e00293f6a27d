// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"beverage-backend/internal/database"
	"beverage-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Logger discards everything.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// NewDB returns a migrated sqlite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, Logger()))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser inserts an active user whose password equals its username.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(username), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     strings.ToUpper(username[:1]) + username[1:],
		Email:        username + "@company.test",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateBeverage inserts an active coffee with the given stock.
func CreateBeverage(t *testing.T, db *gorm.DB, name string, stock int) *models.Beverage {
	t.Helper()
	b := &models.Beverage{
		Name:          name,
		Category:      models.CategoryCoffee,
		StockQuantity: stock,
		Unit:          models.DefaultUnit,
		MinStockAlert: models.DefaultMinStockAlert,
		UnitPrice:     decimal.RequireFromString("12.50"),
		CaffeineLevel: models.CaffeineMedium,
		IsActive:      true,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}
