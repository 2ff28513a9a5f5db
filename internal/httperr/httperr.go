// Package httperr alan hatalarını HTTP cevaplarına çevirir.
package httperr

import (
	"errors"

	"magaza-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler tüm hataları {"error": "..."} formatında döner.
func Handler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{
				"error": e.Message,
			})
		}

		logger.Error("unexpected error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Beklenmeyen sunucu hatası",
		})
	}
}

// FromStock stok defteri hatalarını uygun durum koduna eşler.
// Tanınmayan hatalar olduğu gibi döner ve 500 olarak loglanır.
func FromStock(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stock.ErrProductNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
	case errors.Is(err, stock.ErrSaleNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Satış bulunamadı")
	case errors.Is(err, stock.ErrInsufficientStock):
		return fiber.NewError(fiber.StatusConflict, "Yetersiz stok")
	case errors.Is(err, stock.ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, "Geçersiz miktar")
	}
	return err
}
