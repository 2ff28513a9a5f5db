package stock

import (
	"context"
	"testing"

	"magaza-backend/internal/models"
	"magaza-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func notifications(t *testing.T, db *gorm.DB, productID uint) []models.StockNotification {
	t.Helper()
	var list []models.StockNotification
	require.NoError(t, db.Where("product_id = ?", productID).Order("id").Find(&list).Error)
	return list
}

func state(t *testing.T, db *gorm.DB, productID uint) models.LowStockState {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.LowStockState
}

func TestScanIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, "Kadıköy")
	low := f.Product(t, db, "Süt", "25", 4)
	edge := f.Product(t, db, "Yoğurt", "30", DefaultThreshold)
	f.Product(t, db, "Peynir", "90", 50)
	scanner := NewScanner(db, DefaultThreshold, nil)
	ctx := context.Background()

	res, err := scanner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Notified)
	assert.Zero(t, res.Recovered)

	res, err = scanner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, res)

	require.Len(t, notifications(t, db, low.ID), 1)
	require.Len(t, notifications(t, db, edge.ID), 1)

	n := notifications(t, db, low.ID)[0]
	assert.Equal(t, models.NotificationLowStock, n.Type)
	assert.Equal(t, "Low stock alert for product Süt in branch Kadıköy. Current stock: 4", n.Message)
	assert.False(t, n.IsRead)
	assert.Equal(t, models.LowStockFlagged, state(t, db, low.ID))
}

func TestScanSkipsInactiveProducts(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, "Merkez")
	p := f.Product(t, db, "Eski", "1", 0)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error)

	res, err := NewScanner(db, DefaultThreshold, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Notified)
	assert.Empty(t, notifications(t, db, p.ID))
}

func TestScanResetsFlagOnRestock(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, "Merkez")
	p := f.Product(t, db, "Makarna", "15", 8)
	scanner := NewScanner(db, DefaultThreshold, nil)
	ledger := NewLedger(db, nil)
	ctx := context.Background()

	_, err := scanner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, models.LowStockFlagged, state(t, db, p.ID))

	_, err = ledger.SetStock(ctx, p.ID, 30)
	require.NoError(t, err)

	res, err := scanner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Recovered: 1}, res)
	assert.Equal(t, models.LowStockNormal, state(t, db, p.ID))
	assert.Len(t, notifications(t, db, p.ID), 1)

	_, err = ledger.SetStock(ctx, p.ID, 2)
	require.NoError(t, err)

	res, err = scanner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Notified: 1}, res)
	assert.Len(t, notifications(t, db, p.ID), 2)
}

func TestScanHonoursThreshold(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, "Merkez")
	p := f.Product(t, db, "Zeytin", "60", 8)

	res, err := NewScanner(db, 5, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Notified)
	assert.Empty(t, notifications(t, db, p.ID))
}

func TestStockLifecycleScenario(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, "Beşiktaş")
	p := f.Product(t, db, "Ekmek", "10", 12)
	ledger := NewLedger(db, nil)
	scanner := NewScanner(db, DefaultThreshold, nil)
	ctx := context.Background()

	require.NoError(t, ledger.RecordSale(ctx, newSale(p, 3)))
	assert.Equal(t, 9, testutil.Stock(t, db, p.ID))

	res, err := scanner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)
	assert.Equal(t, models.LowStockFlagged, state(t, db, p.ID))

	_, err = ledger.SetStock(ctx, p.ID, 15)
	require.NoError(t, err)
	res, err = scanner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Recovered: 1}, res)

	require.NoError(t, ledger.RecordSale(ctx, newSale(p, 6)))
	assert.Equal(t, 9, testutil.Stock(t, db, p.ID))

	res, err = scanner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)

	list := notifications(t, db, p.ID)
	require.Len(t, list, 2)
	assert.NotEqual(t, list[0].ID, list[1].ID)
	assert.Contains(t, list[1].Message, "Current stock: 9")
}
