// Package seed loads the initial users and beverages into an empty database.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"beverage-backend/internal/audit"
	"beverage-backend/internal/auth"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultData []byte

type User struct {
	Username   string          `yaml:"username"`
	Password   string          `yaml:"password"`
	FullName   string          `yaml:"full_name"`
	Email      string          `yaml:"email"`
	Department string          `yaml:"department"`
	Role       models.UserRole `yaml:"role"`
}

type Beverage struct {
	Name          string                  `yaml:"name"`
	Category      models.BeverageCategory `yaml:"category"`
	Description   string                  `yaml:"description"`
	StockQuantity int                     `yaml:"stock_quantity"`
	Unit          string                  `yaml:"unit"`
	MinStockAlert *int                    `yaml:"min_stock_alert"`
	UnitPrice     string                  `yaml:"unit_price"`
	CaffeineLevel models.CaffeineLevel    `yaml:"caffeine_level"`
}

type Data struct {
	Users     []User     `yaml:"users"`
	Beverages []Beverage `yaml:"beverages"`
}

// Default returns the built-in data set.
func Default() (*Data, error) {
	return Parse(defaultData)
}

// Load reads a YAML file, or the built-in data when path is empty.
func Load(path string) (*Data, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	for i, u := range d.Users {
		if u.Username == "" || u.Password == "" || u.Email == "" {
			return nil, fmt.Errorf("user %d: username, password and email are required", i)
		}
		if !u.Role.Valid() {
			return nil, fmt.Errorf("user %s: invalid role %q", u.Username, u.Role)
		}
	}
	for _, b := range d.Beverages {
		if b.Name == "" || !models.ValidCategory(b.Category) {
			return nil, fmt.Errorf("beverage %q: name and a valid category are required", b.Name)
		}
		if b.CaffeineLevel != "" && !models.ValidCaffeineLevel(b.CaffeineLevel) {
			return nil, fmt.Errorf("beverage %s: invalid caffeine level %q", b.Name, b.CaffeineLevel)
		}
		if b.StockQuantity < 0 {
			return nil, fmt.Errorf("beverage %s: negative stock", b.Name)
		}
		if b.UnitPrice != "" {
			if _, err := decimal.NewFromString(b.UnitPrice); err != nil {
				return nil, fmt.Errorf("beverage %s: invalid unit price: %w", b.Name, err)
			}
		}
	}
	return &d, nil
}

// Run inserts d when the users table is empty. It reports whether anything
// was written. Initial stock is recorded in the ledger as stock_in.
func Run(ctx context.Context, store *repository.Store, d *Data, log logrus.FieldLogger) (bool, error) {
	n, err := store.Users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		log.Info("database already seeded, skipping")
		return false, nil
	}

	err = store.WithTx(ctx, func(tx *repository.Store) error {
		var performer uint
		for _, su := range d.Users {
			hash, err := auth.HashPassword(su.Password)
			if err != nil {
				return err
			}
			u := &models.User{
				Username:     su.Username,
				PasswordHash: hash,
				FullName:     su.FullName,
				Email:        strings.ToLower(su.Email),
				Role:         su.Role,
				IsActive:     true,
			}
			if su.FullName == "" {
				u.FullName = su.Username
			}
			if su.Department != "" {
				dep := su.Department
				u.Department = &dep
			}
			if err := tx.Users.Create(ctx, u); err != nil {
				return fmt.Errorf("seed user %s: %w", su.Username, err)
			}
			if performer == 0 && u.Role == models.RoleAdmin {
				performer = u.ID
			}
		}

		for _, sb := range d.Beverages {
			b := &models.Beverage{
				Name:          sb.Name,
				Category:      sb.Category,
				StockQuantity: sb.StockQuantity,
				Unit:          sb.Unit,
				MinStockAlert: models.DefaultMinStockAlert,
				CaffeineLevel: sb.CaffeineLevel,
				IsActive:      true,
			}
			if sb.Description != "" {
				desc := sb.Description
				b.Description = &desc
			}
			if b.Unit == "" {
				b.Unit = models.DefaultUnit
			}
			if sb.MinStockAlert != nil {
				b.MinStockAlert = *sb.MinStockAlert
			}
			if b.CaffeineLevel == "" {
				b.CaffeineLevel = models.CaffeineNone
			}
			if sb.UnitPrice != "" {
				b.UnitPrice = decimal.RequireFromString(sb.UnitPrice).Round(2)
			}
			if err := tx.Beverages.Create(ctx, b); err != nil {
				return fmt.Errorf("seed beverage %s: %w", sb.Name, err)
			}
			if b.StockQuantity == 0 || performer == 0 {
				continue
			}
			_, err := audit.WriteLog(ctx, tx.Inventory, audit.LogOptions{
				BeverageID:  b.ID,
				Type:        models.TxStockIn,
				Quantity:    b.StockQuantity,
				Reason:      "Initial stock",
				PerformedBy: performer,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	log.WithFields(logrus.Fields{"users": len(d.Users), "beverages": len(d.Beverages)}).Info("initial data seeded")
	return true, nil
}
