package seed

import (
	"testing"

	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDefaultData(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Len(t, d.Users, 4)
	assert.Len(t, d.Beverages, 12)
}

func TestRunSeedsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	ctx := t.Context()
	d, err := Default()
	require.NoError(t, err)

	ok, err := Run(ctx, store, d, testutil.Logger())
	require.NoError(t, err)
	assert.True(t, ok)

	admin, err := store.Users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))

	sara, err := store.Users.FindByUsername(ctx, "sara")
	require.NoError(t, err)
	require.NotNil(t, sara.Department)
	assert.Equal(t, "HR", *sara.Department)

	bevs, total, err := store.Beverages.List(ctx, repository.BeverageFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	for _, b := range bevs {
		if b.Name == "Green Tea" {
			assert.Equal(t, 15, b.MinStockAlert)
			assert.Equal(t, models.CaffeineLow, b.CaffeineLevel)
		}
	}

	txs, n, err := store.Inventory.List(ctx, repository.InventoryFilter{Type: models.TxStockIn})
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
	assert.Equal(t, admin.ID, txs[0].PerformedBy)

	ok, err = Run(ctx, store, d, testutil.Logger())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRejectsBadData(t *testing.T) {
	_, err := Parse([]byte("users:\n  - {username: x, password: y, email: x@y.z, role: chef}\n"))
	assert.ErrorContains(t, err, "invalid role")

	_, err = Parse([]byte("beverages:\n  - {name: Soda, category: soda}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("beverages:\n  - {name: Soda, category: other, unit_price: abc}\n"))
	assert.ErrorContains(t, err, "invalid unit price")

	d, err := Parse([]byte("beverages:\n  - {name: Soda, category: other, unit_price: '4.5'}\n"))
	require.NoError(t, err)
	assert.Equal(t, "4.5", d.Beverages[0].UnitPrice)
}
