package httperr

import (
	"testing"

	"magaza-backend/internal/models"
	"magaza-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteGuard(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, "Kadıköy")
	f.Product(t, db, "Süt", "12.00", 5)

	byBranch := Ref{Model: &models.Product{}, Query: "branch_id = ?", Args: []any{f.Branch.ID}, Message: "ürün var"}
	bySupplier := Ref{Model: &models.Invoice{}, Query: "supplier_id = ?", Args: []any{f.Supplier.ID}, Message: "fatura var"}

	assert.NoError(t, DeleteGuard(db, bySupplier))

	var fe *fiber.Error
	require.ErrorAs(t, DeleteGuard(db, bySupplier, byBranch), &fe)
	assert.Equal(t, fiber.StatusConflict, fe.Code)
	assert.Equal(t, "ürün var", fe.Message)

	// sayım yapılamıyorsa silmeye izin verilmez
	require.NoError(t, db.Migrator().DropTable(&models.Invoice{}))
	require.ErrorAs(t, DeleteGuard(db, bySupplier), &fe)
	assert.Equal(t, fiber.StatusInternalServerError, fe.Code)
}
