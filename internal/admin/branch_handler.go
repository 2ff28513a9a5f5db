package admin

import (
	"strings"

	"magaza-backend/internal/audit"
	"magaza-backend/internal/database"
	"magaza-backend/internal/httperr"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type BranchResponse struct {
	ID            uint                `json:"id"`
	Name          string              `json:"name"`
	Address       string              `json:"address"`
	ContactNumber string              `json:"contact_number"`
	Status        models.BranchStatus `json:"status"`
	ProductCount  int64               `json:"product_count"`
	SaleCount     int64               `json:"sale_count"`
	CreatedAt     string              `json:"created_at"`
}

type CreateBranchRequest struct {
	Name          string               `json:"name"`
	Address       string               `json:"address"`
	ContactNumber *string              `json:"contact_number"` // Opsiyonel
	Status        *models.BranchStatus `json:"status"`         // varsayılan active
}

type UpdateBranchRequest struct {
	Name          *string `json:"name"`
	Address       *string `json:"address"`
	ContactNumber *string `json:"contact_number"`
}

type UpdateBranchStatusRequest struct {
	Status models.BranchStatus `json:"status"`
}

func toBranchResponse(b models.Branch) BranchResponse {
	return BranchResponse{
		ID:            b.ID,
		Name:          b.Name,
		Address:       b.Address,
		ContactNumber: b.ContactNumber,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func branchNameTaken(name string, exceptID uint) bool {
	var count int64
	database.DB.Model(&models.Branch{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exceptID).
		Count(&count)
	return count > 0
}

// ----------------------------------------
// ŞUBE CRUD
// ----------------------------------------

// POST /api/admin/branches
func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Şube adı boş olamaz")
		}
		if branchNameTaken(body.Name, 0) {
			return fiber.NewError(fiber.StatusConflict, "Bu isimde bir şube zaten var")
		}

		branch := models.Branch{
			Name:    body.Name,
			Address: strings.TrimSpace(body.Address),
			Status:  models.BranchActive,
		}
		if body.ContactNumber != nil {
			branch.ContactNumber = strings.TrimSpace(*body.ContactNumber)
		}
		if body.Status != nil {
			if !body.Status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz şube durumu")
			}
			branch.Status = *body.Status
		}

		if err := database.DB.Create(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toBranchResponse(branch))
	}
}

type branchCount struct {
	BranchID uint
	Total    int64
}

func countByBranch(model any) (map[uint]int64, error) {
	var rows []branchCount
	if err := database.DB.Model(model).
		Select("branch_id, COUNT(*) AS total").
		Group("branch_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.BranchID] = r.Total
	}
	return out, nil
}

// GET /api/admin/branches
func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Order("name ASC").Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şubeler listelenemedi")
		}

		products, err := countByBranch(&models.Product{})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şubeler listelenemedi")
		}
		sales, err := countByBranch(&models.Sale{})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şubeler listelenemedi")
		}

		res := make([]BranchResponse, 0, len(branches))
		for _, b := range branches {
			r := toBranchResponse(b)
			r.ProductCount = products[b.ID]
			r.SaleCount = sales[b.ID]
			res = append(res, r)
		}

		return c.JSON(res)
	}
}

// GET /api/admin/branches/:id
func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		r := toBranchResponse(branch)
		database.DB.Model(&models.Product{}).Where("branch_id = ?", branch.ID).Count(&r.ProductCount)
		database.DB.Model(&models.Sale{}).Where("branch_id = ?", branch.ID).Count(&r.SaleCount)

		return c.JSON(r)
	}
}

// PUT /api/admin/branches/:id
func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		before := branch

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Şube adı boş olamaz")
			}
			if branchNameTaken(name, branch.ID) {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir şube zaten var")
			}
			branch.Name = name
		}

		if body.Address != nil {
			branch.Address = strings.TrimSpace(*body.Address)
		}

		if body.ContactNumber != nil {
			branch.ContactNumber = strings.TrimSpace(*body.ContactNumber)
		}

		if err := database.DB.Save(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube güncellenemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    &branch.ID,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionUpdate,
			Description: "Şube güncellendi: " + branch.Name,
			Before:      toBranchResponse(before),
			After:       toBranchResponse(branch),
		})

		return c.JSON(toBranchResponse(branch))
	}
}

// PUT /api/admin/branches/:id/status
func UpdateBranchStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateBranchStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}
		if !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz şube durumu")
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		if err := database.DB.Model(&branch).Update("status", body.Status).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube durumu güncellenemedi")
		}
		branch.Status = body.Status

		return c.JSON(toBranchResponse(branch))
	}
}

// DELETE /api/admin/branches/:id
func DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		// ürünü veya satışı olan şube silinmez; kullanıcılar ve müşteriler şubesiz kalmasın
		args := []any{branch.ID}
		if err := httperr.DeleteGuard(database.DB,
			httperr.Ref{Model: &models.Product{}, Query: "branch_id = ?", Args: args, Message: "Bu şubeye ait ürünler var, önce ürünleri taşıyın veya silin"},
			httperr.Ref{Model: &models.Sale{}, Query: "branch_id = ?", Args: args, Message: "Bu şubeye ait satışlar var, şube silinemez"},
			httperr.Ref{Model: &models.User{}, Query: "branch_id = ?", Args: args, Message: "Bu şubeye bağlı kullanıcılar var"},
			httperr.Ref{Model: &models.Customer{}, Query: "branch_id = ?", Args: args, Message: "Bu şubeye kayıtlı müşteriler var"},
		); err != nil {
			return err
		}

		if err := database.DB.Delete(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube silinemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionDelete,
			Description: "Şube silindi: " + branch.Name,
			Before:      toBranchResponse(branch),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
