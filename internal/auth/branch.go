package auth

import (
	"fmt"

	"magaza-backend/internal/database"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func Role(c *fiber.Ctx) (models.UserRole, error) {
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return "", fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}
	return role, nil
}

func ownBranch(c *fiber.Ctx) (uint, error) {
	bPtr, ok := c.Locals(CtxBranchIDKey).(*uint)
	if !ok || bPtr == nil {
		return 0, fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
	}
	return *bPtr, nil
}

// ResolveBranchID kasiyer için kendi şubesini, admin için gövdedeki branch_id'yi döner.
func ResolveBranchID(c *fiber.Ctx, bodyBranchID *uint) (uint, error) {
	role, err := Role(c)
	if err != nil {
		return 0, err
	}

	if role == models.RoleCashier {
		return ownBranch(c)
	}

	// admin
	if bodyBranchID == nil || *bodyBranchID == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	return *bodyBranchID, nil
}

// BranchFilter liste uçları için: kasiyer kendi şubesine sabitlenir,
// admin ?branch_id verirse o şube, vermezse nil (tüm şubeler).
func BranchFilter(c *fiber.Ctx) (*uint, error) {
	role, err := Role(c)
	if err != nil {
		return nil, err
	}

	if role == models.RoleCashier {
		bid, err := ownBranch(c)
		if err != nil {
			return nil, err
		}
		return &bid, nil
	}

	bidStr := c.Query("branch_id")
	if bidStr == "" {
		return nil, nil
	}
	var bid uint
	if _, err := fmt.Sscan(bidStr, &bid); err != nil || bid == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "branch_id geçersiz")
	}
	return &bid, nil
}

// CanAccessBranch kasiyerin başka şubenin kaydına dokunmasını engeller.
func CanAccessBranch(c *fiber.Ctx, branchID uint) error {
	role, err := Role(c)
	if err != nil {
		return err
	}
	if role == models.RoleAdmin {
		return nil
	}
	own, err := ownBranch(c)
	if err != nil {
		return err
	}
	if own != branchID {
		return fiber.NewError(fiber.StatusForbidden, "Bu kayıt sizin şubenize ait değil")
	}
	return nil
}

// CurrentUser audit kayıtları için kullanıcı bilgilerini döner.
func CurrentUser(c *fiber.Ctx) (uint, string, *uint, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return 0, "", nil, fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return 0, "", nil, fiber.NewError(fiber.StatusForbidden, "Kullanıcı bulunamadı")
	}

	return user.ID, user.Name, user.BranchID, nil
}
