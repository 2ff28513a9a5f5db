package sales

import (
	"strings"

	"magaza-backend/internal/auth"
	"magaza-backend/internal/database"
	"magaza-backend/internal/httperr"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CustomerRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	BranchID *uint   `json:"branch_id"` // sadece admin, oluştururken
}

type CustomerResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	LoyaltyPoints int    `json:"loyalty_points"`
	BranchID      uint   `json:"branch_id"`
	SalesCount    int64  `json:"sales_count"`
	CreatedAt     string `json:"created_at"`
}

func toCustomerResponse(cu models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            cu.ID,
		Name:          cu.Name,
		Email:         cu.Email,
		Phone:         cu.Phone,
		Address:       cu.Address,
		LoyaltyPoints: cu.LoyaltyPoints,
		BranchID:      cu.BranchID,
		CreatedAt:     cu.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func (r CustomerRequest) apply(cu *models.Customer) error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri adı boş olamaz")
		}
		cu.Name = name
	}
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		if email != "" && !strings.Contains(email, "@") {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz email")
		}
		cu.Email = email
	}
	if r.Phone != nil {
		cu.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.Address != nil {
		cu.Address = strings.TrimSpace(*r.Address)
	}
	return nil
}

func emailTaken(email string, exceptID uint) bool {
	if email == "" {
		return false
	}
	var count int64
	database.DB.Model(&models.Customer{}).Where("email = ? AND id <> ?", email, exceptID).Count(&count)
	return count > 0
}

func loadCustomer(c *fiber.Ctx) (models.Customer, error) {
	var cu models.Customer
	if err := database.DB.First(&cu, "id = ?", c.Params("id")).Error; err != nil {
		return cu, fiber.NewError(fiber.StatusNotFound, "Müşteri bulunamadı")
	}
	if err := auth.CanAccessBranch(c, cu.BranchID); err != nil {
		return cu, err
	}
	return cu, nil
}

// POST /api/customers
func CreateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if body.Name == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri adı zorunlu")
		}

		branchID, err := auth.ResolveBranchID(c, body.BranchID)
		if err != nil {
			return err
		}

		cu := models.Customer{BranchID: branchID}
		if err := body.apply(&cu); err != nil {
			return err
		}
		if emailTaken(cu.Email, 0) {
			return fiber.NewError(fiber.StatusConflict, "Bu email ile kayıtlı bir müşteri var")
		}

		if err := database.DB.Omit("Branch").Create(&cu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toCustomerResponse(cu))
	}
}

// GET /api/customers?q=...&branch_id=...
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Customer{})

		branchID, err := auth.BranchFilter(c)
		if err != nil {
			return err
		}
		if branchID != nil {
			dbq = dbq.Where("branch_id = ?", *branchID)
		}

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
		}

		var customers []models.Customer
		if err := dbq.Order("id desc").Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteriler listelenemedi")
		}

		var grouped []struct {
			CustomerID uint
			Total      int64
		}
		if err := database.DB.Model(&models.Sale{}).
			Select("customer_id, COUNT(*) AS total").
			Where("customer_id IS NOT NULL").
			Group("customer_id").
			Scan(&grouped).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteriler listelenemedi")
		}
		counts := make(map[uint]int64, len(grouped))
		for _, g := range grouped {
			counts[g.CustomerID] = g.Total
		}

		res := make([]CustomerResponse, 0, len(customers))
		for _, cu := range customers {
			r := toCustomerResponse(cu)
			r.SalesCount = counts[cu.ID]
			res = append(res, r)
		}
		return c.JSON(res)
	}
}

// GET /api/customers/:id
func GetCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cu, err := loadCustomer(c)
		if err != nil {
			return err
		}
		r := toCustomerResponse(cu)
		database.DB.Model(&models.Sale{}).Where("customer_id = ?", cu.ID).Count(&r.SalesCount)
		return c.JSON(r)
	}
}

// PUT /api/customers/:id
func UpdateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cu, err := loadCustomer(c)
		if err != nil {
			return err
		}

		var body CustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if err := body.apply(&cu); err != nil {
			return err
		}
		if emailTaken(cu.Email, cu.ID) {
			return fiber.NewError(fiber.StatusConflict, "Bu email ile kayıtlı bir müşteri var")
		}

		// loyalty_points satışlarla atomik artar; burada yazılmaz
		if err := database.DB.Model(&models.Customer{}).Where("id = ?", cu.ID).Updates(map[string]any{
			"name":    cu.Name,
			"email":   cu.Email,
			"phone":   cu.Phone,
			"address": cu.Address,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri güncellenemedi")
		}

		return c.JSON(toCustomerResponse(cu))
	}
}

// DELETE /api/customers/:id
func DeleteCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cu, err := loadCustomer(c)
		if err != nil {
			return err
		}

		if err := httperr.DeleteGuard(database.DB,
			httperr.Ref{Model: &models.Sale{}, Query: "customer_id = ?", Args: []any{cu.ID}, Message: "Bu müşteriye ait satışlar var"},
			httperr.Ref{Model: &models.Invoice{}, Query: "customer_id = ?", Args: []any{cu.ID}, Message: "Bu müşteriye ait faturalar var"},
		); err != nil {
			return err
		}

		if err := database.DB.Delete(&cu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
