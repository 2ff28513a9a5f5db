package audit

import (
	"encoding/json"
	"fmt"

	"magaza-backend/internal/auth"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LogOptions struct {
	BranchID    *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	// jsonb kolonu boş string kabul etmez
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		BranchID:    opts.BranchID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}

	return nil
}

// Record istek sahibini log'a ekler ve yazar. Hata işlemi geri almaz, sadece loglanır.
func Record(c *fiber.Ctx, db *gorm.DB, opts LogOptions) {
	userID, userName, _, err := auth.CurrentUser(c)
	if err != nil {
		zap.L().Warn("audit: user unresolved", zap.String("entity", opts.EntityType), zap.Error(err))
	}
	opts.UserID = userID
	opts.UserName = userName

	if err := WriteLog(db.WithContext(c.UserContext()), opts); err != nil {
		zap.L().Error("audit write failed",
			zap.String("entity", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID),
			zap.String("action", string(opts.Action)),
			zap.Error(err),
		)
	}
}
