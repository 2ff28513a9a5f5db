// Package server HTTP uygulamasını kurar ve tüm route'ları bağlar.
package server

import (
	"strings"

	"magaza-backend/internal/admin"
	"magaza-backend/internal/audit"
	"magaza-backend/internal/auth"
	"magaza-backend/internal/config"
	"magaza-backend/internal/dashboard"
	"magaza-backend/internal/httperr"
	"magaza-backend/internal/inventory"
	"magaza-backend/internal/invoice"
	"magaza-backend/internal/models"
	"magaza-backend/internal/notification"
	"magaza-backend/internal/sales"
	"magaza-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type Deps struct {
	Ledger *stock.Ledger
	Gate   dashboard.Gate
	Queue  dashboard.Enqueuer
	Logger *zap.Logger
}

func New(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler(deps.Logger),
	})

	app.Use(recover.New())

	// CORS origins virgülle ayrılmış olarak gelir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	// Şube yönetimi
	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Put("/branches/:id/status", admin.UpdateBranchStatusHandler())
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler())

	// Kullanıcılar
	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Delete("/users/:id", admin.DeleteUserHandler())

	// Kategori & tedarikçi
	adminRoutes.Post("/categories", inventory.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", inventory.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", inventory.DeleteCategoryHandler())
	adminRoutes.Post("/suppliers", inventory.CreateSupplierHandler())
	adminRoutes.Put("/suppliers/:id", inventory.UpdateSupplierHandler())
	adminRoutes.Delete("/suppliers/:id", inventory.DeleteSupplierHandler())

	// Ürün yönetimi
	adminRoutes.Post("/products", inventory.CreateProductHandler())
	adminRoutes.Post("/products/import", inventory.ImportProductsHandler())
	adminRoutes.Put("/products/:id", inventory.UpdateProductHandler())
	adminRoutes.Put("/products/:id/stock", inventory.UpdateStockHandler(deps.Ledger))
	adminRoutes.Put("/products/:id/branch", inventory.UpdateProductBranchHandler())
	adminRoutes.Post("/products/:id/restock", inventory.RestockHandler(deps.Ledger))
	adminRoutes.Delete("/products/:id", inventory.DeleteProductHandler())

	// Ortak (auth gerektiren) route'lar

	// Ürünler; sabit yollar :id'den önce
	protected.Get("/products", inventory.ListProductsHandler())
	protected.Get("/products/low-stock", inventory.ListLowStockHandler(cfg.Stock.LowStockThreshold))
	protected.Get("/products/:id", inventory.GetProductHandler())
	protected.Get("/pos/products", inventory.ListPOSProductsHandler())
	protected.Get("/categories", inventory.ListCategoriesHandler())
	protected.Get("/suppliers", inventory.ListSuppliersHandler())
	protected.Get("/suppliers/:id", inventory.GetSupplierHandler())

	// Satışlar
	protected.Post("/sales", sales.CreateSaleHandler(deps.Ledger))
	protected.Get("/sales", sales.ListSalesHandler())
	protected.Get("/sales/export", sales.ExportSalesHandler())
	protected.Get("/sales/:id", sales.GetSaleHandler())
	protected.Put("/sales/:id/status", sales.UpdateSaleStatusHandler())
	protected.Delete("/sales/:id", sales.DeleteSaleHandler(deps.Ledger))

	// Müşteriler
	protected.Post("/customers", sales.CreateCustomerHandler())
	protected.Get("/customers", sales.ListCustomersHandler())
	protected.Get("/customers/:id", sales.GetCustomerHandler())
	protected.Put("/customers/:id", sales.UpdateCustomerHandler())
	protected.Delete("/customers/:id", sales.DeleteCustomerHandler())

	// Faturalar
	protected.Post("/invoices", invoice.CreateInvoiceHandler())
	protected.Get("/invoices", invoice.ListInvoicesHandler())
	protected.Get("/invoices/:id", invoice.GetInvoiceHandler())
	protected.Put("/invoices/:id", invoice.UpdateInvoiceHandler())
	protected.Delete("/invoices/:id", invoice.DeleteInvoiceHandler())

	// Bildirimler
	protected.Get("/notifications", notification.ListNotificationsHandler())
	protected.Post("/notifications/:id/read", notification.MarkReadHandler())
	protected.Delete("/notifications/:id", notification.DeleteNotificationHandler())

	// Dashboard (düşük stok taramasını da tetikler)
	protected.Get("/dashboard", auth.RequireRole(models.RoleAdmin),
		dashboard.GetDashboardHandler(deps.Gate, deps.Queue, cfg.Stock.LowStockThreshold))

	// Audit logs
	protected.Get("/audit-logs", auth.RequireRole(models.RoleAdmin), audit.ListAuditLogsHandler())

	return app
}
