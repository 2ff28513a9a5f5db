package inventory

import (
	"errors"
	"fmt"
	"strings"

	"magaza-backend/internal/audit"
	"magaza-backend/internal/auth"
	"magaza-backend/internal/database"
	"magaza-backend/internal/httperr"
	"magaza-backend/internal/models"
	"magaza-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductResponse struct {
	ID               uint            `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	StockQuantity    int             `json:"stock_quantity"`
	IsActive         bool            `json:"is_active"`
	LowStockNotified bool            `json:"low_stock_notified"`
	CategoryID       uint            `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	SupplierID       uint            `json:"supplier_id"`
	SupplierName     string          `json:"supplier_name"`
	BranchID         uint            `json:"branch_id"`
	BranchName       string          `json:"branch_name"`
	UpdatedAt        string          `json:"updated_at"`
}

type CreateProductRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      *bool           `json:"is_active"` // varsayılan true
	CategoryID    uint            `json:"category_id"`
	SupplierID    uint            `json:"supplier_id"`
	BranchID      uint            `json:"branch_id"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"is_active"`
	CategoryID  *uint            `json:"category_id"`
	SupplierID  *uint            `json:"supplier_id"`
}

type UpdateStockRequest struct {
	StockQuantity *int `json:"stock_quantity"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type UpdateProductBranchRequest struct {
	BranchID uint `json:"branch_id"`
}

func toProductResponse(p models.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		Price:            p.Price,
		StockQuantity:    p.StockQuantity,
		IsActive:         p.IsActive,
		LowStockNotified: p.LowStockState.Notified(),
		CategoryID:       p.CategoryID,
		CategoryName:     p.Category.Name,
		SupplierID:       p.SupplierID,
		SupplierName:     p.Supplier.Name,
		BranchID:         p.BranchID,
		BranchName:       p.Branch.Name,
		UpdatedAt:        p.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toProductResponses(products []models.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Supplier").Preload("Branch")
}

func loadProduct(id any) (models.Product, error) {
	var p models.Product
	if err := withRelations(database.DB).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		return p, fiber.NewError(fiber.StatusInternalServerError, "Ürün okunamadı")
	}
	return p, nil
}

func exists(model any, id uint) bool {
	var count int64
	database.DB.Model(model).Where("id = ?", id).Count(&count)
	return count > 0
}

// checkReferences kategori, tedarikçi ve şubenin var olduğunu doğrular.
func checkReferences(categoryID, supplierID, branchID uint) error {
	if categoryID == 0 || !exists(&models.Category{}, categoryID) {
		return fiber.NewError(fiber.StatusBadRequest, "Kategori bulunamadı")
	}
	if supplierID == 0 || !exists(&models.Supplier{}, supplierID) {
		return fiber.NewError(fiber.StatusBadRequest, "Tedarikçi bulunamadı")
	}
	if branchID == 0 || !exists(&models.Branch{}, branchID) {
		return fiber.NewError(fiber.StatusBadRequest, "Şube bulunamadı")
	}
	return nil
}

// GET /api/products?branch_id=1&category_id=2&supplier_id=3&q=süt&is_active=true
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := withRelations(database.DB.Model(&models.Product{}))

		branchID, err := auth.BranchFilter(c)
		if err != nil {
			return err
		}
		if branchID != nil {
			dbq = dbq.Where("products.branch_id = ?", *branchID)
		}

		for param, column := range map[string]string{
			"category_id": "products.category_id",
			"supplier_id": "products.supplier_id",
		} {
			v := c.Query(param)
			if v == "" {
				continue
			}
			var id uint
			if _, err := fmt.Sscan(v, &id); err != nil || id == 0 {
				return fiber.NewError(fiber.StatusBadRequest, param+" geçersiz")
			}
			dbq = dbq.Where(column+" = ?", id)
		}

		switch c.Query("is_active") {
		case "true":
			dbq = dbq.Where("products.is_active = ?", true)
		case "false":
			dbq = dbq.Where("products.is_active = ?", false)
		}

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
		}

		var products []models.Product
		if err := dbq.Order("products.name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}

		return c.JSON(toProductResponses(products))
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := loadProduct(c.Params("id"))
		if err != nil {
			return err
		}
		if err := auth.CanAccessBranch(c, p.BranchID); err != nil {
			return err
		}
		return c.JSON(toProductResponse(p))
	}
}

// GET /api/products/low-stock?threshold=10
func ListLowStockHandler(defaultThreshold int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		threshold := defaultThreshold
		if v := c.Query("threshold"); v != "" {
			if _, err := fmt.Sscan(v, &threshold); err != nil || threshold < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "threshold geçersiz")
			}
		}

		dbq := withRelations(database.DB).
			Where("stock_quantity <= ? AND is_active = ?", threshold, true)

		branchID, err := auth.BranchFilter(c)
		if err != nil {
			return err
		}
		if branchID != nil {
			dbq = dbq.Where("branch_id = ?", *branchID)
		}

		var products []models.Product
		if err := dbq.Order("stock_quantity asc, name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}

		return c.JSON(toProductResponses(products))
	}
}

// GET /api/pos/products?q=...
// Kasiyerin şubesindeki aktif ürünler.
func ListPOSProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchID(c, nil)
		if err != nil {
			return err
		}

		dbq := withRelations(database.DB).
			Where("branch_id = ? AND is_active = ?", branchID, true)

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}

		var products []models.Product
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}

		return c.JSON(toProductResponses(products))
	}
}

// POST /api/admin/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün adı zorunlu")
		}
		if body.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat negatif olamaz")
		}
		if body.StockQuantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Stok miktarı negatif olamaz")
		}
		if err := checkReferences(body.CategoryID, body.SupplierID, body.BranchID); err != nil {
			return err
		}

		p := models.Product{
			Name:          body.Name,
			Description:   strings.TrimSpace(body.Description),
			Price:         body.Price.Round(2),
			StockQuantity: body.StockQuantity,
			IsActive:      true,
			LowStockState: models.LowStockNormal,
			CategoryID:    body.CategoryID,
			SupplierID:    body.SupplierID,
			BranchID:      body.BranchID,
		}
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}

		if err := database.DB.Omit(clause.Associations).Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün oluşturulamadı")
		}

		created, err := loadProduct(p.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toProductResponse(created))
	}
}

// PUT /api/admin/products/:id
// Stok bu uçtan değişmez; /stock ve /restock kullanılır.
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p, err := loadProduct(c.Params("id"))
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Ürün adı boş olamaz")
			}
			updates["name"] = name
		}
		if body.Description != nil {
			updates["description"] = strings.TrimSpace(*body.Description)
		}
		if body.Price != nil {
			if body.Price.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Fiyat negatif olamaz")
			}
			updates["price"] = body.Price.Round(2)
		}
		if body.IsActive != nil {
			updates["is_active"] = *body.IsActive
		}
		if body.CategoryID != nil {
			if !exists(&models.Category{}, *body.CategoryID) {
				return fiber.NewError(fiber.StatusBadRequest, "Kategori bulunamadı")
			}
			updates["category_id"] = *body.CategoryID
		}
		if body.SupplierID != nil {
			if !exists(&models.Supplier{}, *body.SupplierID) {
				return fiber.NewError(fiber.StatusBadRequest, "Tedarikçi bulunamadı")
			}
			updates["supplier_id"] = *body.SupplierID
		}

		if len(updates) > 0 {
			// sadece gönderilen kolonlar yazılır; eşzamanlı stok güncellemesi ezilmez
			if err := database.DB.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Ürün güncellenemedi")
			}
		}

		updated, err := loadProduct(p.ID)
		if err != nil {
			return err
		}
		return c.JSON(toProductResponse(updated))
	}
}

// PUT /api/admin/products/:id/stock
func UpdateStockHandler(ledger *stock.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		var body UpdateStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if body.StockQuantity == nil {
			return fiber.NewError(fiber.StatusBadRequest, "stock_quantity zorunlu")
		}

		before, err := loadProduct(id)
		if err != nil {
			return err
		}

		p, err := ledger.SetStock(c.UserContext(), uint(id), *body.StockQuantity)
		if err != nil {
			return httperr.FromStock(err)
		}

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    &p.BranchID,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Stok düzenlendi: %s %d -> %d", p.Name, before.StockQuantity, p.StockQuantity),
			Before:      fiber.Map{"stock_quantity": before.StockQuantity},
			After:       fiber.Map{"stock_quantity": p.StockQuantity},
		})

		updated, err := loadProduct(p.ID)
		if err != nil {
			return err
		}
		return c.JSON(toProductResponse(updated))
	}
}

// POST /api/admin/products/:id/restock
func RestockHandler(ledger *stock.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		var body RestockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p, err := ledger.Restock(c.UserContext(), uint(id), body.Quantity)
		if err != nil {
			return httperr.FromStock(err)
		}

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    &p.BranchID,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Stok girişi: %s +%d", p.Name, body.Quantity),
			After:       fiber.Map{"quantity": body.Quantity, "stock_quantity": p.StockQuantity},
		})

		updated, err := loadProduct(p.ID)
		if err != nil {
			return err
		}
		return c.JSON(toProductResponse(updated))
	}
}

// PUT /api/admin/products/:id/branch
// branch_id gövdeden ya da ?branch_id= sorgusundan okunur.
func UpdateProductBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateProductBranchRequest
		_ = c.BodyParser(&body)
		if body.BranchID == 0 {
			if _, err := fmt.Sscan(c.Query("branch_id"), &body.BranchID); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
			}
		}
		if body.BranchID == 0 || !exists(&models.Branch{}, body.BranchID) {
			return fiber.NewError(fiber.StatusBadRequest, "Şube bulunamadı")
		}

		p, err := loadProduct(c.Params("id"))
		if err != nil {
			return err
		}

		if err := database.DB.Model(&models.Product{}).Where("id = ?", p.ID).Update("branch_id", body.BranchID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün şubesi güncellenemedi")
		}

		updated, err := loadProduct(p.ID)
		if err != nil {
			return err
		}
		return c.JSON(toProductResponse(updated))
	}
}

// DELETE /api/admin/products/:id
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := loadProduct(c.Params("id"))
		if err != nil {
			return err
		}

		// satış geçmişi olan ürün silinmez; pasife alınabilir
		if err := httperr.DeleteGuard(database.DB, httperr.Ref{
			Model:   &models.Sale{},
			Query:   "product_id = ?",
			Args:    []any{p.ID},
			Message: "Bu ürüne ait satışlar var, ürünü pasife alın",
		}); err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("product_id = ?", p.ID).Delete(&models.StockNotification{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Product{}, p.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün silinemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    &p.BranchID,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: "Ürün silindi: " + p.Name,
			Before:      toProductResponse(p),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
