package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SaleStatusPending  SaleStatus = "pending"
	SaleStatusPaid     SaleStatus = "paid"
	SaleStatusCanceled SaleStatus = "canceled"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusPending, SaleStatusPaid, SaleStatusCanceled:
		return true
	}
	return false
}

// Sale: tek ürünlük satış kaydı. TotalAmount oluşturma anında hesaplanır,
// sonradan güncellenmez.
type Sale struct {
	ID           uint `gorm:"primaryKey"`
	CustomerID   *uint `gorm:"index"`
	Customer     *Customer
	CustomerName string          `gorm:"size:255"`
	ProductID    uint            `gorm:"index;not null"`
	Product      Product
	Quantity     int             `gorm:"not null"`
	Tax          decimal.Decimal `gorm:"type:decimal(5,2);not null"`      // yüzde
	Discount     decimal.Decimal `gorm:"type:decimal(5,2);not null"`      // yüzde
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status       SaleStatus      `gorm:"size:20;not null;default:pending;index"`
	BranchID     uint            `gorm:"index;not null"`
	Branch       Branch
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}
