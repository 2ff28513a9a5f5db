package dashboard_test

import (
	"context"
	"testing"
	"time"

	"magaza-backend/internal/dashboard"
	"magaza-backend/internal/jobs"
	"magaza-backend/internal/models"
	"magaza-backend/internal/stock"
	"magaza-backend/internal/testutil"
	"magaza-backend/internal/testutil/apitest"
	"magaza-backend/internal/throttle"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	names []string
	err   error
}

func (q *recordingQueue) Enqueue(name string) error {
	q.names = append(q.names, name)
	return q.err
}

type gate bool

func (g gate) Allow(context.Context) bool { return bool(g) }

func TestDashboardCountsAndThrottledTrigger(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := apitest.Config()
	queue := &recordingQueue{}
	th := throttle.New(throttle.NewDBLocker(db), throttle.DefaultKey, time.Minute, nil)

	app := apitest.NewApp(cfg, func(api fiber.Router) {
		api.Get("/dashboard", dashboard.GetDashboardHandler(th, queue, cfg.Stock.LowStockThreshold))
	})

	f := testutil.Seed(t, db, "Kadıköy")
	f.Product(t, db, "Süt", "12.00", 3)
	f.Product(t, db, "Ekmek", "8.00", 50)
	admin := apitest.User(t, db, models.RoleAdmin, nil)
	token := apitest.Token(t, cfg, admin)

	code, out := apitest.Do(t, app, "GET", "/api/dashboard", token, nil)
	require.Equal(t, fiber.StatusOK, code, string(out))
	var res dashboard.DashboardResponse
	apitest.Decode(t, out, &res)

	assert.Equal(t, dashboard.Counts{
		Branches:         1,
		Products:         2,
		Suppliers:        1,
		Users:            1,
		LowStockProducts: 1,
	}, res.Counts)
	assert.Equal(t, 10, res.Threshold)
	assert.Empty(t, res.LatestNotifications)

	// pencere içinde ikinci yükleme tekrar tetiklemez
	code, _ = apitest.Do(t, app, "GET", "/api/dashboard", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{stock.ScanJobName}, queue.names)
}

func TestDashboardIgnoresEnqueueFailure(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := apitest.Config()
	queue := &recordingQueue{err: jobs.ErrQueueFull}

	app := apitest.NewApp(cfg, func(api fiber.Router) {
		api.Get("/dashboard", dashboard.GetDashboardHandler(gate(true), queue, 10))
	})
	admin := apitest.User(t, db, models.RoleAdmin, nil)

	code, _ := apitest.Do(t, app, "GET", "/api/dashboard", apitest.Token(t, cfg, admin), nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{stock.ScanJobName}, queue.names)
}

func TestDashboardRunsScanThroughRunner(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := apitest.Config()

	f := testutil.Seed(t, db, "Kadıköy")
	p := f.Product(t, db, "Süt", "12.00", 2)
	scanner := stock.NewScanner(db, cfg.Stock.LowStockThreshold, nil)

	runner := jobs.NewRunner(1, 4, nil)
	done := make(chan stock.ScanResult, 1)
	runner.Register(stock.ScanJobName, func(ctx context.Context) error {
		res, err := scanner.Run(ctx)
		done <- res
		return err
	})
	runner.Start(context.Background())
	t.Cleanup(runner.Stop)

	app := apitest.NewApp(cfg, func(api fiber.Router) {
		api.Get("/dashboard", dashboard.GetDashboardHandler(gate(true), runner, cfg.Stock.LowStockThreshold))
	})
	admin := apitest.User(t, db, models.RoleAdmin, nil)
	token := apitest.Token(t, cfg, admin)

	code, _ := apitest.Do(t, app, "GET", "/api/dashboard", token, nil)
	require.Equal(t, fiber.StatusOK, code)

	select {
	case res := <-done:
		assert.Equal(t, 1, res.Notified)
	case <-time.After(3 * time.Second):
		t.Fatal("scan did not run")
	}

	code, out := apitest.Do(t, app, "GET", "/api/dashboard", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	var res dashboard.DashboardResponse
	apitest.Decode(t, out, &res)
	assert.Equal(t, int64(1), res.Counts.UnreadNotifications)
	require.Len(t, res.LatestNotifications, 1)
	assert.Equal(t, p.ID, res.LatestNotifications[0].ProductID)
}
