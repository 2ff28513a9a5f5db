package inventory

import (
	"strings"

	"magaza-backend/internal/database"
	"magaza-backend/internal/httperr"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SupplierResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	CreatedAt     string `json:"created_at"`
}

type SupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
}

func toSupplierResponse(s models.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:            s.ID,
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
		CreatedAt:     s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// apply gövdedeki dolu alanları tedarikçiye yazar.
func (r SupplierRequest) apply(s *models.Supplier) error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Tedarikçi adı boş olamaz")
		}
		s.Name = name
	}
	if r.ContactPerson != nil {
		s.ContactPerson = strings.TrimSpace(*r.ContactPerson)
	}
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		if email != "" && !strings.Contains(email, "@") {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz email")
		}
		s.Email = email
	}
	if r.Phone != nil {
		s.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.Address != nil {
		s.Address = strings.TrimSpace(*r.Address)
	}
	return nil
}

// GET /api/suppliers?q=...
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Supplier{})

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
		}

		var suppliers []models.Supplier
		if err := dbq.Order("id desc").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçiler listelenemedi")
		}

		res := make([]SupplierResponse, 0, len(suppliers))
		for _, s := range suppliers {
			res = append(res, toSupplierResponse(s))
		}
		return c.JSON(res)
	}
}

// GET /api/suppliers/:id
func GetSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var s models.Supplier
		if err := database.DB.First(&s, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}
		return c.JSON(toSupplierResponse(s))
	}
}

// POST /api/admin/suppliers
func CreateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if body.Name == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tedarikçi adı zorunlu")
		}

		var s models.Supplier
		if err := body.apply(&s); err != nil {
			return err
		}

		if s.Email != "" {
			var count int64
			database.DB.Model(&models.Supplier{}).Where("email = ?", s.Email).Count(&count)
			if count > 0 {
				return fiber.NewError(fiber.StatusConflict, "Bu email ile kayıtlı bir tedarikçi var")
			}
		}

		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toSupplierResponse(s))
	}
}

// PUT /api/admin/suppliers/:id
func UpdateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var s models.Supplier
		if err := database.DB.First(&s, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}

		var body SupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if err := body.apply(&s); err != nil {
			return err
		}

		if err := database.DB.Save(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi güncellenemedi")
		}

		return c.JSON(toSupplierResponse(s))
	}
}

// DELETE /api/admin/suppliers/:id
func DeleteSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var s models.Supplier
		if err := database.DB.First(&s, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}

		if err := httperr.DeleteGuard(database.DB,
			httperr.Ref{Model: &models.Product{}, Query: "supplier_id = ?", Args: []any{s.ID}, Message: "Bu tedarikçiye ait ürünler var"},
			httperr.Ref{Model: &models.Invoice{}, Query: "supplier_id = ?", Args: []any{s.ID}, Message: "Bu tedarikçiye ait faturalar var"},
		); err != nil {
			return err
		}

		if err := database.DB.Delete(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
