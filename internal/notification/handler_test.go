package notification_test

import (
	"fmt"
	"testing"

	"magaza-backend/internal/models"
	"magaza-backend/internal/notification"
	"magaza-backend/internal/testutil"
	"magaza-backend/internal/testutil/apitest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func notify(t *testing.T, db *gorm.DB, p models.Product, read bool) models.StockNotification {
	t.Helper()
	n := models.StockNotification{
		ProductID: p.ID,
		Type:      models.NotificationLowStock,
		Message:   p.Name + " stoğu azaldı",
	}
	require.NoError(t, db.Omit(clause.Associations).Create(&n).Error)
	if read {
		require.NoError(t, db.Model(&n).Update("is_read", true).Error)
		n.IsRead = true
	}
	return n
}

func setup(t *testing.T) (*fiber.App, *gorm.DB, string, string, []models.StockNotification) {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := apitest.Config()
	app := apitest.NewApp(cfg, func(api fiber.Router) {
		api.Get("/notifications", notification.ListNotificationsHandler())
		api.Post("/notifications/:id/read", notification.MarkReadHandler())
		api.Delete("/notifications/:id", notification.DeleteNotificationHandler())
	})

	own := testutil.Seed(t, db, "Kadıköy")
	other := testutil.Seed(t, db, "Beşiktaş")
	p1 := own.Product(t, db, "Süt", "12.00", 2)
	p2 := other.Product(t, db, "Ekmek", "8.00", 1)

	list := []models.StockNotification{
		notify(t, db, p1, false),
		notify(t, db, p1, true),
		notify(t, db, p2, false),
	}

	admin := apitest.User(t, db, models.RoleAdmin, nil)
	cashier := apitest.User(t, db, models.RoleCashier, &own.Branch.ID)
	return app, db, apitest.Token(t, cfg, admin), apitest.Token(t, cfg, cashier), list
}

func TestListNotifications(t *testing.T) {
	app, _, admin, cashier, seeded := setup(t)

	code, out := apitest.Do(t, app, "GET", "/api/notifications", admin, nil)
	require.Equal(t, fiber.StatusOK, code)
	var all []notification.NotificationResponse
	apitest.Decode(t, out, &all)
	require.Len(t, all, 3)
	assert.Equal(t, seeded[2].ID, all[0].ID)
	assert.Equal(t, "Ekmek", all[0].ProductName)

	code, out = apitest.Do(t, app, "GET", "/api/notifications", cashier, nil)
	require.Equal(t, fiber.StatusOK, code)
	var own []notification.NotificationResponse
	apitest.Decode(t, out, &own)
	assert.Len(t, own, 2)

	code, out = apitest.Do(t, app, "GET", "/api/notifications?unread=true", cashier, nil)
	require.Equal(t, fiber.StatusOK, code)
	var unread []notification.NotificationResponse
	apitest.Decode(t, out, &unread)
	require.Len(t, unread, 1)
	assert.Equal(t, seeded[0].ID, unread[0].ID)
	assert.False(t, unread[0].IsRead)
	assert.Equal(t, models.NotificationLowStock, unread[0].Type)
}

func TestMarkRead(t *testing.T) {
	app, db, _, cashier, seeded := setup(t)

	code, out := apitest.Do(t, app, "POST", fmt.Sprintf("/api/notifications/%d/read", seeded[0].ID), cashier, nil)
	require.Equal(t, fiber.StatusOK, code, string(out))
	var n notification.NotificationResponse
	apitest.Decode(t, out, &n)
	assert.True(t, n.IsRead)

	var stored models.StockNotification
	require.NoError(t, db.First(&stored, seeded[0].ID).Error)
	assert.True(t, stored.IsRead)

	// başka şubenin bildirimi görünmez
	code, _ = apitest.Do(t, app, "POST", fmt.Sprintf("/api/notifications/%d/read", seeded[2].ID), cashier, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestDeleteNotificationKeepsProductState(t *testing.T) {
	app, db, admin, _, seeded := setup(t)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", seeded[2].ProductID).
		Update("low_stock_state", models.LowStockFlagged).Error)

	code, _ := apitest.Do(t, app, "DELETE", fmt.Sprintf("/api/notifications/%d", seeded[2].ID), admin, nil)
	require.Equal(t, fiber.StatusNoContent, code)

	var count int64
	db.Model(&models.StockNotification{}).Where("id = ?", seeded[2].ID).Count(&count)
	assert.Zero(t, count)

	var p models.Product
	require.NoError(t, db.First(&p, seeded[2].ProductID).Error)
	assert.Equal(t, models.LowStockFlagged, p.LowStockState)

	code, _ = apitest.Do(t, app, "DELETE", "/api/notifications/9999", admin, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}
