package httperr

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ref silmeyi engelleyen bağımlı kayıt koşulu.
type Ref struct {
	Model   any
	Query   string
	Args    []any
	Message string
}

// DeleteGuard ilk bağımlı kayıtta 409 döner. Sorgu hatası da silmeyi durdurur (500).
func DeleteGuard(db *gorm.DB, refs ...Ref) error {
	for _, r := range refs {
		var count int64
		if err := db.Model(r.Model).Where(r.Query, r.Args...).Count(&count).Error; err != nil {
			zap.L().Error("delete guard query failed", zap.String("query", r.Query), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Bağlı kayıtlar kontrol edilemedi")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, r.Message)
		}
	}
	return nil
}
