package notification

import (
	"errors"

	"magaza-backend/internal/auth"
	"magaza-backend/internal/database"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const listLimit = 100

type NotificationResponse struct {
	ID          uint                    `json:"id"`
	ProductID   uint                    `json:"product_id"`
	ProductName string                  `json:"product_name"`
	BranchID    uint                    `json:"branch_id"`
	Type        models.NotificationType `json:"type"`
	Message     string                  `json:"message"`
	IsRead      bool                    `json:"is_read"`
	CreatedAt   string                  `json:"created_at"`
}

func ToResponse(n models.StockNotification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		ProductID:   n.ProductID,
		ProductName: n.Product.Name,
		BranchID:    n.Product.BranchID,
		Type:        n.Type,
		Message:     n.Message,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// scoped bildirimleri ürünün şubesine göre sınırlar.
func scoped(c *fiber.Ctx) (*gorm.DB, error) {
	branchID, err := auth.BranchFilter(c)
	if err != nil {
		return nil, err
	}
	dbq := database.DB.Model(&models.StockNotification{})
	if branchID != nil {
		dbq = dbq.Where("product_id IN (?)",
			database.DB.Model(&models.Product{}).Select("id").Where("branch_id = ?", *branchID))
	}
	return dbq, nil
}

func load(c *fiber.Ctx) (models.StockNotification, error) {
	var n models.StockNotification
	dbq, err := scoped(c)
	if err != nil {
		return n, err
	}
	if err := dbq.Preload("Product").First(&n, "stock_notifications.id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return n, fiber.NewError(fiber.StatusNotFound, "Bildirim bulunamadı")
		}
		return n, fiber.NewError(fiber.StatusInternalServerError, "Bildirim okunamadı")
	}
	return n, nil
}

// GET /api/notifications?unread=true&branch_id=1
func ListNotificationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := scoped(c)
		if err != nil {
			return err
		}
		if c.QueryBool("unread", false) {
			dbq = dbq.Where("is_read = ?", false)
		}

		var list []models.StockNotification
		if err := dbq.Preload("Product").
			Order("created_at DESC, id DESC").
			Limit(listLimit).
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler listelenemedi")
		}

		resp := make([]NotificationResponse, 0, len(list))
		for _, n := range list {
			resp = append(resp, ToResponse(n))
		}
		return c.JSON(resp)
	}
}

// POST /api/notifications/:id/read
func MarkReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := load(c)
		if err != nil {
			return err
		}
		if !n.IsRead {
			if err := database.DB.Model(&models.StockNotification{}).Where("id = ?", n.ID).Update("is_read", true).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Bildirim güncellenemedi")
			}
			n.IsRead = true
		}
		return c.JSON(ToResponse(n))
	}
}

// DELETE /api/notifications/:id
// Silmek ürünün düşük stok durumunu değiştirmez; aynı ihlal için yeni bildirim üretilmez.
func DeleteNotificationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := load(c)
		if err != nil {
			return err
		}
		if err := database.DB.Delete(&models.StockNotification{}, n.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirim silinemedi")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
