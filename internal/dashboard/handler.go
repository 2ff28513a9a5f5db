package dashboard

import (
	"context"

	"magaza-backend/internal/database"
	"magaza-backend/internal/models"
	"magaza-backend/internal/notification"
	"magaza-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const latestNotifications = 5

// Gate tarama tetikleyicisini seyreltir (throttle.Throttle).
type Gate interface {
	Allow(ctx context.Context) bool
}

// Enqueuer işi arka plan kuyruğuna bırakır (jobs.Runner).
type Enqueuer interface {
	Enqueue(name string) error
}

type Counts struct {
	Branches            int64 `json:"branches"`
	Products            int64 `json:"products"`
	Customers           int64 `json:"customers"`
	Suppliers           int64 `json:"suppliers"`
	Users               int64 `json:"users"`
	Sales               int64 `json:"sales"`
	LowStockProducts    int64 `json:"low_stock_products"`
	UnreadNotifications int64 `json:"unread_notifications"`
}

type DashboardResponse struct {
	Counts              Counts                              `json:"counts"`
	Threshold           int                                 `json:"threshold"`
	LatestNotifications []notification.NotificationResponse `json:"latest_notifications"`
}

// triggerScan sayfa cevabını bekletmeden düşük stok taramasını kuyruğa bırakır.
// Kuyruk hatası kullanıcıya yansımaz.
func triggerScan(ctx context.Context, gate Gate, queue Enqueuer) {
	if !gate.Allow(ctx) {
		return
	}
	if err := queue.Enqueue(stock.ScanJobName); err != nil {
		zap.L().Warn("low stock scan enqueue failed", zap.Error(err))
	}
}

// GET /api/dashboard
func GetDashboardHandler(gate Gate, queue Enqueuer, threshold int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		triggerScan(c.UserContext(), gate, queue)

		var res DashboardResponse
		res.Threshold = threshold

		db := database.DB.WithContext(c.UserContext())
		counts := []struct {
			model any
			dst   *int64
			where []any
		}{
			{&models.Branch{}, &res.Counts.Branches, nil},
			{&models.Product{}, &res.Counts.Products, nil},
			{&models.Customer{}, &res.Counts.Customers, nil},
			{&models.Supplier{}, &res.Counts.Suppliers, nil},
			{&models.User{}, &res.Counts.Users, nil},
			{&models.Sale{}, &res.Counts.Sales, nil},
			{&models.Product{}, &res.Counts.LowStockProducts, []any{"stock_quantity <= ? AND is_active = ?", threshold, true}},
			{&models.StockNotification{}, &res.Counts.UnreadNotifications, []any{"is_read = ?", false}},
		}
		for _, q := range counts {
			dbq := db.Model(q.model)
			if len(q.where) > 0 {
				dbq = dbq.Where(q.where[0], q.where[1:]...)
			}
			if err := dbq.Count(q.dst).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Özet bilgiler alınamadı")
			}
		}

		var latest []models.StockNotification
		if err := db.Preload("Product").
			Order("created_at DESC, id DESC").
			Limit(latestNotifications).
			Find(&latest).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler alınamadı")
		}
		res.LatestNotifications = make([]notification.NotificationResponse, 0, len(latest))
		for _, n := range latest {
			res.LatestNotifications = append(res.LatestNotifications, notification.ToResponse(n))
		}

		return c.JSON(res)
	}
}
