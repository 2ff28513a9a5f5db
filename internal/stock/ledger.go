package stock

import (
	"context"
	"errors"
	"fmt"

	"magaza-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// Ledger ürün stokunu satış yaşam döngüsüyle tutarlı tutar.
// Tüm stok değişiklikleri tek SQL ifadesiyle (stock_quantity = stock_quantity + ?) yapılır.
type Ledger struct {
	db            *gorm.DB
	allowNegative bool
	logger        *zap.Logger
}

type LedgerOption func(*Ledger)

// AllowNegativeStock satışın stoku sıfırın altına düşürmesine izin verir.
func AllowNegativeStock(allow bool) LedgerOption {
	return func(l *Ledger) { l.allowNegative = allow }
}

func NewLedger(db *gorm.DB, logger *zap.Logger, opts ...LedgerOption) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{db: db, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordSale satışı kaydeder ve ürün stokunu aynı transaction içinde düşer.
func (l *Ledger) RecordSale(ctx context.Context, sale *models.Sale) error {
	if sale.Quantity < 1 {
		return ErrInvalidQuantity
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(sale).Error; err != nil {
			return fmt.Errorf("record sale: %w", err)
		}
		return l.adjust(tx, sale.ProductID, -sale.Quantity)
	})
}

// VoidSale satışı siler, fatura bağlarını kaldırır ve stoku geri ekler.
func (l *Ledger) VoidSale(ctx context.Context, saleID uint) (*models.Sale, error) {
	var sale models.Sale

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sale, saleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			return fmt.Errorf("load sale: %w", err)
		}

		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.InvoiceSale{}).Error; err != nil {
			return fmt.Errorf("detach invoices: %w", err)
		}

		res := tx.Delete(&models.Sale{}, sale.ID)
		if res.Error != nil {
			return fmt.Errorf("delete sale: %w", res.Error)
		}
		// eşzamanlı iptal: stok iki kez geri eklenmez
		if res.RowsAffected == 0 {
			return ErrSaleNotFound
		}

		return l.adjust(tx, sale.ProductID, sale.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// SetStock yönetici stok düzenlemesi; mutlak değer yazar.
func (l *Ledger) SetStock(ctx context.Context, productID uint, quantity int) (*models.Product, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	db := l.db.WithContext(ctx)
	res := db.Model(&models.Product{}).Where("id = ?", productID).Update("stock_quantity", quantity)
	if res.Error != nil {
		return nil, fmt.Errorf("set stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return l.load(db, productID)
}

// Restock stoku atomik olarak artırır.
func (l *Ledger) Restock(ctx context.Context, productID uint, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	db := l.db.WithContext(ctx)
	res := db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if res.Error != nil {
		return nil, fmt.Errorf("restock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return l.load(db, productID)
}

func (l *Ledger) adjust(tx *gorm.DB, productID uint, delta int) error {
	q := tx.Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 && !l.allowNegative {
		q = q.Where("stock_quantity >= ?", -delta)
	}

	res := q.Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust stock: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if count == 0 {
		// satış kaydı yine geçerli; ürün silinmişse stok düzeltmesi atlanır
		l.logger.Warn("stock adjustment skipped, product missing",
			zap.Uint("product_id", productID),
			zap.Int("delta", delta),
		)
		return nil
	}
	return ErrInsufficientStock
}

func (l *Ledger) load(db *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	if err := db.First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}
