package sales

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"magaza-backend/internal/audit"
	"magaza-backend/internal/auth"
	"magaza-backend/internal/database"
	"magaza-backend/internal/httperr"
	"magaza-backend/internal/models"
	"magaza-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPerPage = 15

type CreateSaleRequest struct {
	ProductID    uint              `json:"product_id"`
	Quantity     int               `json:"quantity"`
	CustomerID   *uint             `json:"customer_id"`
	CustomerName string            `json:"customer_name"`
	Tax          decimal.Decimal   `json:"tax"`      // yüzde
	Discount     decimal.Decimal   `json:"discount"` // yüzde
	Status       models.SaleStatus `json:"status"`
	BranchID     *uint             `json:"branch_id"` // sadece admin
}

type UpdateSaleStatusRequest struct {
	Status models.SaleStatus `json:"status"`
}

type SaleResponse struct {
	ID           uint              `json:"id"`
	ProductID    uint              `json:"product_id"`
	ProductName  string            `json:"product_name"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	Quantity     int               `json:"quantity"`
	CustomerID   *uint             `json:"customer_id"`
	CustomerName string            `json:"customer_name"`
	Tax          decimal.Decimal   `json:"tax"`
	Discount     decimal.Decimal   `json:"discount"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Status       models.SaleStatus `json:"status"`
	BranchID     uint              `json:"branch_id"`
	BranchName   string            `json:"branch_name"`
	CreatedAt    string            `json:"created_at"`
}

type SaleListResponse struct {
	Data    []SaleResponse `json:"data"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int64          `json:"total"`
}

func toSaleResponse(s models.Sale) SaleResponse {
	return SaleResponse{
		ID:           s.ID,
		ProductID:    s.ProductID,
		ProductName:  s.Product.Name,
		UnitPrice:    s.Product.Price,
		Quantity:     s.Quantity,
		CustomerID:   s.CustomerID,
		CustomerName: s.CustomerName,
		Tax:          s.Tax,
		Discount:     s.Discount,
		TotalAmount:  s.TotalAmount,
		Status:       s.Status,
		BranchID:     s.BranchID,
		BranchName:   s.Branch.Name,
		CreatedAt:    s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func loadSale(id any) (models.Sale, error) {
	var s models.Sale
	err := database.DB.Preload("Product").Preload("Branch").Preload("Customer").First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s, fiber.NewError(fiber.StatusNotFound, "Satış bulunamadı")
		}
		return s, fiber.NewError(fiber.StatusInternalServerError, "Satış okunamadı")
	}
	return s, nil
}

// POST /api/sales
func CreateSaleHandler(ledger *stock.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		branchID, err := auth.ResolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}

		if body.Quantity < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Adet en az 1 olmalı")
		}
		if body.Status == "" {
			body.Status = models.SaleStatusPending
		}
		if !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Durum pending, paid veya canceled olmalı")
		}
		if body.Tax.IsNegative() || body.Discount.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Vergi ve indirim negatif olamaz")
		}

		var product models.Product
		if err := database.DB.First(&product, "id = ? AND branch_id = ?", body.ProductID, branchID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bu şubede bulunamadı")
		}
		if !product.IsActive {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün satışa kapalı")
		}

		customerName := strings.TrimSpace(body.CustomerName)
		if body.CustomerID != nil {
			var customer models.Customer
			if err := database.DB.First(&customer, "id = ?", *body.CustomerID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Müşteri bulunamadı")
			}
			customerName = customer.Name
		}

		sale := models.Sale{
			CustomerID:   body.CustomerID,
			CustomerName: customerName,
			ProductID:    product.ID,
			Quantity:     body.Quantity,
			Tax:          body.Tax,
			Discount:     body.Discount,
			TotalAmount:  stock.ComputeTotal(product.Price, body.Quantity, body.Discount, body.Tax),
			Status:       body.Status,
			BranchID:     branchID,
		}

		if err := ledger.RecordSale(c.UserContext(), &sale); err != nil {
			return httperr.FromStock(err)
		}

		if sale.CustomerID != nil {
			if err := database.DB.Model(&models.Customer{}).
				Where("id = ?", *sale.CustomerID).
				Update("loyalty_points", gorm.Expr("loyalty_points + ?", 1)).Error; err != nil {
				zap.L().Warn("loyalty points not updated", zap.Uint("sale_id", sale.ID), zap.Error(err))
			}
		}

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    &branchID,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Satış: %s x%d = %s", product.Name, sale.Quantity, sale.TotalAmount.StringFixed(2)),
			After: fiber.Map{
				"product_id":   sale.ProductID,
				"quantity":     sale.Quantity,
				"total_amount": sale.TotalAmount,
			},
		})

		created, err := loadSale(sale.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toSaleResponse(created))
	}
}

func parseDate(v string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", v, time.Local)
}

// filteredSales liste ve dışa aktarım için ortak sorgu.
func filteredSales(c *fiber.Ctx) (*gorm.DB, error) {
	dbq := database.DB.Model(&models.Sale{})

	branchID, err := auth.BranchFilter(c)
	if err != nil {
		return nil, err
	}
	if branchID != nil {
		dbq = dbq.Where("sales.branch_id = ?", *branchID)
	}

	if status := models.SaleStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Geçersiz durum")
		}
		dbq = dbq.Where("sales.status = ?", status)
	}

	if v := c.Query("product"); v != "" {
		pid, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "product geçersiz")
		}
		dbq = dbq.Where("sales.product_id = ?", pid)
	}

	if customer := strings.TrimSpace(c.Query("customer")); customer != "" {
		like := "%" + strings.ToLower(customer) + "%"
		dbq = dbq.Where("LOWER(sales.customer_name) LIKE ? OR sales.customer_id IN (?)",
			like, database.DB.Model(&models.Customer{}).Select("id").Where("LOWER(name) LIKE ?", like))
	}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		if id, err := strconv.ParseUint(q, 10, 64); err == nil {
			dbq = dbq.Where("sales.id = ? OR LOWER(sales.customer_name) LIKE ?", id, like)
		} else {
			dbq = dbq.Where("LOWER(sales.customer_name) LIKE ?", like)
		}
	}

	if v := c.Query("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "from tarihi YYYY-MM-DD olmalı")
		}
		dbq = dbq.Where("sales.created_at >= ?", from)
	}
	if v := c.Query("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "to tarihi YYYY-MM-DD olmalı")
		}
		// gün dahil
		dbq = dbq.Where("sales.created_at < ?", to.AddDate(0, 0, 1))
	}

	return dbq, nil
}

// GET /api/sales?status=paid&product=1&customer=ali&q=12&from=2025-01-01&to=2025-01-31&page=1&per_page=15
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := filteredSales(c)
		if err != nil {
			return err
		}

		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		perPage := c.QueryInt("per_page", defaultPerPage)
		if perPage < 1 || perPage > 100 {
			perPage = defaultPerPage
		}

		var total int64
		if err := dbq.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satışlar listelenemedi")
		}

		var list []models.Sale
		if err := dbq.Preload("Product").Preload("Branch").
			Order("sales.created_at DESC, sales.id DESC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satışlar listelenemedi")
		}

		res := SaleListResponse{
			Data:    make([]SaleResponse, 0, len(list)),
			Page:    page,
			PerPage: perPage,
			Total:   total,
		}
		for _, s := range list {
			res.Data = append(res.Data, toSaleResponse(s))
		}
		return c.JSON(res)
	}
}

// GET /api/sales/:id
func GetSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := loadSale(c.Params("id"))
		if err != nil {
			return err
		}
		if err := auth.CanAccessBranch(c, s.BranchID); err != nil {
			return err
		}
		return c.JSON(toSaleResponse(s))
	}
}

// PUT /api/sales/:id/status
// Durum değişikliği stoku etkilemez.
func UpdateSaleStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateSaleStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Durum pending, paid veya canceled olmalı")
		}

		s, err := loadSale(c.Params("id"))
		if err != nil {
			return err
		}
		if err := auth.CanAccessBranch(c, s.BranchID); err != nil {
			return err
		}

		before := s.Status
		if err := database.DB.Model(&models.Sale{}).Where("id = ?", s.ID).Update("status", body.Status).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satış güncellenemedi")
		}
		s.Status = body.Status

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    &s.BranchID,
			EntityType:  "sale",
			EntityID:    s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Satış durumu: %s -> %s", before, s.Status),
			Before:      fiber.Map{"status": before},
			After:       fiber.Map{"status": s.Status},
		})

		return c.JSON(toSaleResponse(s))
	}
}

// DELETE /api/sales/:id
// Satış silinir ve adet stoka geri eklenir.
func DeleteSaleHandler(ledger *stock.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := loadSale(c.Params("id"))
		if err != nil {
			return err
		}
		if err := auth.CanAccessBranch(c, s.BranchID); err != nil {
			return err
		}

		if _, err := ledger.VoidSale(c.UserContext(), s.ID); err != nil {
			return httperr.FromStock(err)
		}

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    &s.BranchID,
			EntityType:  "sale",
			EntityID:    s.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Satış silindi: %s x%d", s.Product.Name, s.Quantity),
			Before:      toSaleResponse(s),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
