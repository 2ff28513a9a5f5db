package admin

import (
	"strings"

	"magaza-backend/internal/auth"
	"magaza-backend/internal/database"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
	BranchID *uint           `json:"branch_id"`
}

type UserResponse struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Role       models.UserRole `json:"role"`
	BranchID   *uint           `json:"branch_id"`
	BranchName string          `json:"branch_name,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

func toUserResponse(u models.User) UserResponse {
	r := UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		BranchID:  u.BranchID,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if u.Branch != nil {
		r.BranchName = u.Branch.Name
	}
	return r
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İsim, email ve şifre zorunlu")
		}
		if len(body.Password) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "Şifre en az 6 karakter olmalı")
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Rol admin veya cashier olmalı")
		}

		user := models.User{
			Name:  body.Name,
			Email: body.Email,
			Role:  body.Role,
		}

		// kasiyer bir şubeye bağlı olmak zorunda
		if body.Role == models.RoleCashier {
			if body.BranchID == nil {
				return fiber.NewError(fiber.StatusBadRequest, "Kasiyer için branch_id zorunlu")
			}
			var branch models.Branch
			if err := database.DB.First(&branch, "id = ?", *body.BranchID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
			}
			user.BranchID = &branch.ID
			user.Branch = &branch
		}

		var exist int64
		database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&exist)
		if exist > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu email zaten kayıtlı")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}
		user.PasswordHash = string(hash)

		if err := database.DB.Omit("Branch").Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// GET /api/admin/users?role=cashier&branch_id=1
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("Branch").Order("created_at DESC")

		if role := models.UserRole(c.Query("role")); role != "" {
			if !role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol")
			}
			dbq = dbq.Where("role = ?", role)
		}

		branchID, err := auth.BranchFilter(c)
		if err != nil {
			return err
		}
		if branchID != nil {
			dbq = dbq.Where("branch_id = ?", *branchID)
		}

		var users []models.User
		if err := dbq.Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, toUserResponse(u))
		}
		return c.JSON(res)
	}
}

// DELETE /api/admin/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz kullanıcı ID")
		}

		if me, ok := c.Locals(auth.CtxUserIDKey).(uint); ok && me == uint(id) {
			return fiber.NewError(fiber.StatusBadRequest, "Kendi hesabınızı silemezsiniz")
		}

		res := database.DB.Delete(&models.User{}, id)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı silinemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
