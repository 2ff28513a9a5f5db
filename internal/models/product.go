package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockState: düşük stok bildirim durumu.
// normal -> flagged (eşik altına düştü, bildirim üretildi)
// flagged -> normal (stok eşiğin üstüne çıktı)
type LowStockState string

const (
	LowStockNormal  LowStockState = "normal"
	LowStockFlagged LowStockState = "flagged"
)

// Breach eşik ihlalinde yeni durumu ve geçişin gerçekleşip gerçekleşmediğini döner.
func (s LowStockState) Breach() (LowStockState, bool) {
	if s == LowStockFlagged {
		return s, false
	}
	return LowStockFlagged, true
}

// Recover stok toparlandığında yeni durumu ve geçişin gerçekleşip gerçekleşmediğini döner.
func (s LowStockState) Recover() (LowStockState, bool) {
	if s != LowStockFlagged {
		return LowStockNormal, false
	}
	return LowStockNormal, true
}

func (s LowStockState) Notified() bool {
	return s == LowStockFlagged
}

type Product struct {
	ID            uint            `gorm:"primaryKey"`
	Name          string          `gorm:"size:255;not null;index"`
	Description   string          `gorm:"size:1000"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockQuantity int             `gorm:"not null;default:0"`
	IsActive      bool            `gorm:"not null"`
	LowStockState LowStockState   `gorm:"size:20;not null;default:normal;index"`
	CategoryID    uint            `gorm:"index;not null"`
	Category      Category
	SupplierID    uint `gorm:"index;not null"`
	Supplier      Supplier
	BranchID      uint `gorm:"index;not null"`
	Branch        Branch
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Product) IsLowStock(threshold int) bool {
	return p.StockQuantity <= threshold
}
