package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"magaza-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultThreshold = 10

	// ScanJobName arka plan kuyruğunda ve zamanlayıcıda kullanılan iş adı.
	ScanJobName = "stock:check-low"
)

type ScanResult struct {
	Notified  int
	Recovered int
}

// Scanner eşik altındaki ürünler için ihlal başına tek bildirim üretir.
type Scanner struct {
	db        *gorm.DB
	threshold int
	logger    *zap.Logger
}

func NewScanner(db *gorm.DB, threshold int, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{db: db, threshold: threshold, logger: logger}
}

func (s *Scanner) Threshold() int {
	return s.threshold
}

// Run tek tarama turu: ihlal geçişi, ardından toparlanma geçişi.
// Arka arkaya iki çalıştırma (arada stok değişmezse) ikincisinde hiçbir şey yapmaz.
func (s *Scanner) Run(ctx context.Context) (ScanResult, error) {
	var res ScanResult
	start := time.Now()
	db := s.db.WithContext(ctx)

	var candidates []models.Product
	err := db.Preload("Branch").
		Where("stock_quantity <= ? AND is_active = ? AND low_stock_state = ?", s.threshold, true, models.LowStockNormal).
		Order("id").
		Find(&candidates).Error
	if err != nil {
		return res, fmt.Errorf("load low stock products: %w", err)
	}

	var errs []error
	for i := range candidates {
		notified, err := s.flag(db, &candidates[i])
		if err != nil {
			s.logger.Error("low stock flag failed", zap.Uint("product_id", candidates[i].ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if notified {
			res.Notified++
		}
	}

	// işaretli ve eşiğin üstüne çıkmış ürünler yeniden bildirime açılır
	normal, _ := models.LowStockFlagged.Recover()
	recovered := db.Model(&models.Product{}).
		Where("stock_quantity > ? AND low_stock_state = ?", s.threshold, models.LowStockFlagged).
		Update("low_stock_state", normal)
	if recovered.Error != nil {
		errs = append(errs, fmt.Errorf("reset recovered products: %w", recovered.Error))
	} else {
		res.Recovered = int(recovered.RowsAffected)
	}

	s.logger.Info("low stock scan finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("notified", res.Notified),
		zap.Int("recovered", res.Recovered),
		zap.Duration("took", time.Since(start)),
	)

	return res, errors.Join(errs...)
}

// flag ürünü işaretler ve bildirimi oluşturur. Durum geçişi koşullu UPDATE ile yapılır;
// aynı anda çalışan ikinci tarama satırı etkileyemez ve bildirim üretmez.
func (s *Scanner) flag(db *gorm.DB, p *models.Product) (bool, error) {
	next, changed := p.LowStockState.Breach()
	if !changed {
		return false, nil
	}

	notified := false
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND low_stock_state = ? AND stock_quantity <= ?", p.ID, models.LowStockNormal, s.threshold).
			Update("low_stock_state", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var current models.Product
		if err := tx.Select("id", "stock_quantity").First(&current, p.ID).Error; err != nil {
			return err
		}

		n := models.StockNotification{
			ProductID: p.ID,
			Type:      models.NotificationLowStock,
			Message:   LowStockMessage(p.Name, p.Branch.Name, current.StockQuantity),
		}
		if err := tx.Omit("Product").Create(&n).Error; err != nil {
			return err
		}
		notified = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if notified {
		p.LowStockState = next
	}
	return notified, nil
}

func LowStockMessage(product, branch string, stock int) string {
	return fmt.Sprintf("Low stock alert for product %s in branch %s. Current stock: %d", product, branch, stock)
}
