package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceType string

const (
	InvoiceTypePurchase InvoiceType = "purchase"
	InvoiceTypeSale     InvoiceType = "sale"
)

func (t InvoiceType) Valid() bool {
	return t == InvoiceTypePurchase || t == InvoiceTypeSale
}

type Invoice struct {
	ID            uint            `gorm:"primaryKey"`
	InvoiceNumber string          `gorm:"size:50;not null;uniqueIndex"`
	Type          InvoiceType     `gorm:"size:20;not null"`
	SupplierID    *uint           `gorm:"index"`
	Supplier      *Supplier
	CustomerID    *uint `gorm:"index"`
	Customer      *Customer
	CustomerName  string          `gorm:"size:255"`
	DueDate       *time.Time
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status        SaleStatus      `gorm:"size:20;not null;default:pending;index"`
	Notes         string          `gorm:"size:1000"`
	Branch        string          `gorm:"size:255;index"` // şube adı (denormalize)
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Lines []InvoiceSale
}

// InvoiceSale: fatura ile satış arasındaki bağ. LineTotal satış tutarının önbelleği.
type InvoiceSale struct {
	ID        uint             `gorm:"primaryKey"`
	InvoiceID uint             `gorm:"not null;uniqueIndex:idx_invoice_sale"`
	SaleID    uint             `gorm:"not null;uniqueIndex:idx_invoice_sale;index"`
	Sale      Sale
	LineTotal *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
