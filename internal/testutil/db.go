// Package testutil paketler arası paylaşılan test yardımcılarını içerir.
package testutil

import (
	"fmt"
	"testing"

	"magaza-backend/internal/database"
	"magaza-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB bellek içi SQLite veritabanı açar, şemayı kurar ve database.DB'ye atar.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("sqlite açılamadı: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB alınamadı: %v", err)
	}
	// tek bağlantı: bellek içi veritabanı paylaşılır, yazmalar sıralanır
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

// Fixture tek şubeli tipik bir veri seti.
type Fixture struct {
	Branch   models.Branch
	Category models.Category
	Supplier models.Supplier
}

func Seed(t testing.TB, db *gorm.DB, branchName string) Fixture {
	t.Helper()

	f := Fixture{
		Branch:   models.Branch{Name: branchName, Status: models.BranchActive},
		Category: models.Category{Name: "Kategori " + branchName},
		Supplier: models.Supplier{Name: "Tedarikçi " + branchName},
	}
	must(t, db.Create(&f.Branch).Error)
	must(t, db.Create(&f.Category).Error)
	must(t, db.Create(&f.Supplier).Error)
	return f
}

// Product fixture şubesinde verilen stokla aktif bir ürün oluşturur.
func (f Fixture) Product(t testing.TB, db *gorm.DB, name string, price string, stock int) models.Product {
	t.Helper()

	p := models.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
		LowStockState: models.LowStockNormal,
		CategoryID:    f.Category.ID,
		SupplierID:    f.Supplier.ID,
		BranchID:      f.Branch.ID,
	}
	must(t, db.Create(&p).Error)
	return p
}

// Stock ürünün güncel stok miktarını okur.
func Stock(t testing.TB, db *gorm.DB, productID uint) int {
	t.Helper()

	var p models.Product
	must(t, db.First(&p, productID).Error)
	return p.StockQuantity
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
}
