package service

import (
	"testing"
	"time"

	"chainpos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestAggregateDemand(t *testing.T) {
	// 2x item A needing 2 units of X each, 1x item B needing 1 unit of
	// X and 0.5 of Y: X demanded through two different dishes is summed
	items := []models.OrderItem{
		{MenuItemID: 1, Quantity: 2},
		{MenuItemID: 2, Quantity: 1},
	}
	recipes := []models.RecipeItem{
		{MenuItemID: 1, IngredientID: 10, Quantity: dec("2")},
		{MenuItemID: 2, IngredientID: 10, Quantity: dec("1")},
		{MenuItemID: 2, IngredientID: 11, Quantity: dec("0.5")},
	}

	demand := AggregateDemand(items, recipes)

	require.Len(t, demand, 2)
	assert.True(t, demand[10].Equal(dec("5")), "got %s", demand[10])
	assert.True(t, demand[11].Equal(dec("0.5")), "got %s", demand[11])
}

func TestAggregateDemandNoRecipes(t *testing.T) {
	items := []models.OrderItem{{MenuItemID: 1, Quantity: 3}}
	demand := AggregateDemand(items, nil)
	assert.Empty(t, demand)
}

func TestAllocateLotsEarliestExpiryFirst(t *testing.T) {
	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(72 * time.Hour)
	// lots arrive pre-sorted by ascending expiry, never-expiring last
	lots := []models.InventoryLot{
		{ID: 1, IngredientID: 10, CurrentStock: dec("3"), ExpiresAt: &soon},
		{ID: 2, IngredientID: 10, CurrentStock: dec("4"), ExpiresAt: &later},
		{ID: 3, IngredientID: 10, CurrentStock: dec("10")},
	}
	demand := map[int64]decimal.Decimal{10: dec("5")}

	draws, err := AllocateLots(lots, demand)
	require.NoError(t, err)

	require.Len(t, draws, 2)
	assert.Equal(t, int64(1), draws[0].LotID)
	assert.True(t, draws[0].Quantity.Equal(dec("3")))
	assert.Equal(t, int64(2), draws[1].LotID)
	assert.True(t, draws[1].Quantity.Equal(dec("2")))
}

func TestAllocateLotsInsufficientStock(t *testing.T) {
	// demand of 5 against total stock of 4 rejects the whole plan
	lots := []models.InventoryLot{
		{ID: 1, IngredientID: 10, CurrentStock: dec("4")},
	}
	demand := map[int64]decimal.Decimal{10: dec("5")}

	draws, err := AllocateLots(lots, demand)
	require.Error(t, err)
	assert.Nil(t, draws)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(10), stockErr.IngredientID)
	assert.True(t, stockErr.Requested.Equal(dec("5")))
	assert.True(t, stockErr.Available.Equal(dec("4")))
}

func TestAllocateLotsAllOrNothing(t *testing.T) {
	// one short ingredient rejects draws for the satisfiable one too
	lots := []models.InventoryLot{
		{ID: 1, IngredientID: 10, CurrentStock: dec("100")},
		{ID: 2, IngredientID: 11, CurrentStock: dec("1")},
	}
	demand := map[int64]decimal.Decimal{
		10: dec("2"),
		11: dec("2"),
	}

	draws, err := AllocateLots(lots, demand)
	require.Error(t, err)
	assert.Nil(t, draws)
}

func TestAllocateLotsSkipsEmptyLots(t *testing.T) {
	lots := []models.InventoryLot{
		{ID: 1, IngredientID: 10, CurrentStock: decimal.Zero},
		{ID: 2, IngredientID: 10, CurrentStock: dec("6")},
	}
	demand := map[int64]decimal.Decimal{10: dec("6")}

	draws, err := AllocateLots(lots, demand)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, int64(2), draws[0].LotID)
	assert.True(t, draws[0].Quantity.Equal(dec("6")))
}

func TestAllocateLotsFractionalQuantities(t *testing.T) {
	lots := []models.InventoryLot{
		{ID: 1, IngredientID: 11, CurrentStock: dec("0.3")},
		{ID: 2, IngredientID: 11, CurrentStock: dec("0.4")},
	}
	demand := map[int64]decimal.Decimal{11: dec("0.5")}

	draws, err := AllocateLots(lots, demand)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.True(t, draws[0].Quantity.Equal(dec("0.3")))
	assert.True(t, draws[1].Quantity.Equal(dec("0.2")))
}
