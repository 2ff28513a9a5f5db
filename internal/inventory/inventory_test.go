package inventory_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"magaza-backend/internal/auth"
	"magaza-backend/internal/inventory"
	"magaza-backend/internal/models"
	"magaza-backend/internal/stock"
	"magaza-backend/internal/testutil"
	"magaza-backend/internal/testutil/apitest"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type env struct {
	db      *gorm.DB
	app     *fiber.App
	f       testutil.Fixture
	admin   string
	cashier string
}

func newEnv(t *testing.T) env {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := apitest.Config()
	ledger := stock.NewLedger(db, nil)

	app := apitest.NewApp(cfg, func(api fiber.Router) {
		api.Get("/products", inventory.ListProductsHandler())
		api.Get("/products/low-stock", inventory.ListLowStockHandler(cfg.Stock.LowStockThreshold))
		api.Get("/products/:id", inventory.GetProductHandler())
		api.Get("/pos/products", auth.RequireRole(models.RoleCashier), inventory.ListPOSProductsHandler())
		api.Get("/categories", inventory.ListCategoriesHandler())
		api.Get("/suppliers", inventory.ListSuppliersHandler())

		a := api.Group("/admin", auth.RequireRole(models.RoleAdmin))
		a.Post("/categories", inventory.CreateCategoryHandler())
		a.Delete("/categories/:id", inventory.DeleteCategoryHandler())
		a.Post("/suppliers", inventory.CreateSupplierHandler())
		a.Put("/suppliers/:id", inventory.UpdateSupplierHandler())
		a.Delete("/suppliers/:id", inventory.DeleteSupplierHandler())
		a.Post("/products", inventory.CreateProductHandler())
		a.Post("/products/import", inventory.ImportProductsHandler())
		a.Put("/products/:id", inventory.UpdateProductHandler())
		a.Put("/products/:id/stock", inventory.UpdateStockHandler(ledger))
		a.Put("/products/:id/branch", inventory.UpdateProductBranchHandler())
		a.Post("/products/:id/restock", inventory.RestockHandler(ledger))
		a.Delete("/products/:id", inventory.DeleteProductHandler())
	})

	f := testutil.Seed(t, db, "Kadıköy")
	admin := apitest.User(t, db, models.RoleAdmin, nil)
	cashier := apitest.User(t, db, models.RoleCashier, &f.Branch.ID)

	return env{
		db:      db,
		app:     app,
		f:       f,
		admin:   apitest.Token(t, cfg, admin),
		cashier: apitest.Token(t, cfg, cashier),
	}
}

func TestCreateAndUpdateProduct(t *testing.T) {
	e := newEnv(t)

	code, _ := apitest.Do(t, e.app, "POST", "/api/admin/products", e.cashier, fiber.Map{"name": "Süt"})
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = apitest.Do(t, e.app, "POST", "/api/admin/products", e.admin, fiber.Map{
		"name": "Süt", "price": "24.90", "stock_quantity": 20,
		"category_id": 999, "supplier_id": e.f.Supplier.ID, "branch_id": e.f.Branch.ID,
	})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body := apitest.Do(t, e.app, "POST", "/api/admin/products", e.admin, fiber.Map{
		"name": "Süt", "price": 24.9, "stock_quantity": 20,
		"category_id": e.f.Category.ID, "supplier_id": e.f.Supplier.ID, "branch_id": e.f.Branch.ID,
	})
	require.Equal(t, fiber.StatusCreated, code)
	var p inventory.ProductResponse
	apitest.Decode(t, body, &p)
	assert.True(t, p.IsActive)
	assert.False(t, p.LowStockNotified)
	assert.Equal(t, "Kadıköy", p.BranchName)
	assert.True(t, decimal.RequireFromString("24.90").Equal(p.Price))

	code, body = apitest.Do(t, e.app, "PUT", fmt.Sprintf("/api/admin/products/%d", p.ID), e.admin, fiber.Map{
		"is_active": false, "price": "26.00",
	})
	require.Equal(t, fiber.StatusOK, code)
	apitest.Decode(t, body, &p)
	assert.False(t, p.IsActive)
	assert.Equal(t, 20, p.StockQuantity)

	code, _ = apitest.Do(t, e.app, "PUT", fmt.Sprintf("/api/admin/products/%d", p.ID), e.admin, fiber.Map{"price": "-1"})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestStockEditAndRestockAreAudited(t *testing.T) {
	e := newEnv(t)
	p := e.f.Product(t, e.db, "Ekmek", "10", 4)
	path := fmt.Sprintf("/api/admin/products/%d", p.ID)

	code, _ := apitest.Do(t, e.app, "PUT", path+"/stock", e.admin, fiber.Map{"stock_quantity": -3})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = apitest.Do(t, e.app, "PUT", path+"/stock", e.admin, fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body := apitest.Do(t, e.app, "PUT", path+"/stock", e.admin, fiber.Map{"stock_quantity": 15})
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, string(body), `"stock_quantity":15`)

	code, body = apitest.Do(t, e.app, "POST", path+"/restock", e.admin, fiber.Map{"quantity": 5})
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, string(body), `"stock_quantity":20`)

	code, _ = apitest.Do(t, e.app, "POST", path+"/restock", e.admin, fiber.Map{"quantity": 0})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = apitest.Do(t, e.app, "POST", "/api/admin/products/9999/restock", e.admin, fiber.Map{"quantity": 1})
	assert.Equal(t, fiber.StatusNotFound, code)

	var logs int64
	e.db.Model(&models.AuditLog{}).Where("entity_type = ? AND entity_id = ?", "product", p.ID).Count(&logs)
	assert.Equal(t, int64(2), logs)
}

func TestLowStockAndPOSLists(t *testing.T) {
	e := newEnv(t)
	low := e.f.Product(t, e.db, "Peynir", "90", 3)
	e.f.Product(t, e.db, "Zeytin", "60", 50)
	inactive := e.f.Product(t, e.db, "Yağ", "120", 1)
	require.NoError(t, e.db.Model(&inactive).Update("is_active", false).Error)

	other := testutil.Seed(t, e.db, "Beşiktaş")
	other.Product(t, e.db, "Simit", "5", 2)

	var list []inventory.ProductResponse
	code, body := apitest.Do(t, e.app, "GET", "/api/products/low-stock", e.admin, nil)
	require.Equal(t, fiber.StatusOK, code)
	apitest.Decode(t, body, &list)
	assert.Len(t, list, 2)

	code, body = apitest.Do(t, e.app, "GET", "/api/products/low-stock", e.cashier, nil)
	require.Equal(t, fiber.StatusOK, code)
	apitest.Decode(t, body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, low.ID, list[0].ID)

	code, body = apitest.Do(t, e.app, "GET", "/api/pos/products", e.cashier, nil)
	require.Equal(t, fiber.StatusOK, code)
	apitest.Decode(t, body, &list)
	assert.Len(t, list, 2)

	code, body = apitest.Do(t, e.app, "GET", "/api/products?q=zey", e.admin, nil)
	require.Equal(t, fiber.StatusOK, code)
	apitest.Decode(t, body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Zeytin", list[0].Name)

	code, _ = apitest.Do(t, e.app, "GET", "/api/products/9999", e.admin, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestDeleteGuards(t *testing.T) {
	e := newEnv(t)
	p := e.f.Product(t, e.db, "Kola", "30", 10)
	require.NoError(t, e.db.Create(&models.Sale{
		ProductID:   p.ID,
		Quantity:    1,
		TotalAmount: decimal.RequireFromString("30"),
		Status:      models.SaleStatusPaid,
		BranchID:    e.f.Branch.ID,
	}).Error)

	code, _ := apitest.Do(t, e.app, "DELETE", fmt.Sprintf("/api/admin/products/%d", p.ID), e.admin, nil)
	assert.Equal(t, fiber.StatusConflict, code)
	code, _ = apitest.Do(t, e.app, "DELETE", fmt.Sprintf("/api/admin/categories/%d", e.f.Category.ID), e.admin, nil)
	assert.Equal(t, fiber.StatusConflict, code)
	code, _ = apitest.Do(t, e.app, "DELETE", fmt.Sprintf("/api/admin/suppliers/%d", e.f.Supplier.ID), e.admin, nil)
	assert.Equal(t, fiber.StatusConflict, code)

	fresh := e.f.Product(t, e.db, "Gazoz", "20", 10)
	require.NoError(t, e.db.Create(&models.StockNotification{
		ProductID: fresh.ID, Type: models.NotificationLowStock, Message: "x",
	}).Error)
	code, _ = apitest.Do(t, e.app, "DELETE", fmt.Sprintf("/api/admin/products/%d", fresh.ID), e.admin, nil)
	assert.Equal(t, fiber.StatusNoContent, code)

	var n int64
	e.db.Model(&models.StockNotification{}).Where("product_id = ?", fresh.ID).Count(&n)
	assert.Zero(t, n)
}

func TestDeleteProductFailsClosedWhenGuardQueryFails(t *testing.T) {
	e := newEnv(t)
	p := e.f.Product(t, e.db, "Ayran", "15", 10)
	require.NoError(t, e.db.Migrator().DropTable(&models.Sale{}))

	code, _ := apitest.Do(t, e.app, "DELETE", fmt.Sprintf("/api/admin/products/%d", p.ID), e.admin, nil)
	assert.Equal(t, fiber.StatusInternalServerError, code)

	var n int64
	e.db.Model(&models.Product{}).Where("id = ?", p.ID).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestCategoriesAndSuppliers(t *testing.T) {
	e := newEnv(t)

	code, _ := apitest.Do(t, e.app, "POST", "/api/admin/categories", e.admin, fiber.Map{"name": "İçecek"})
	require.Equal(t, fiber.StatusCreated, code)
	code, _ = apitest.Do(t, e.app, "POST", "/api/admin/categories", e.admin, fiber.Map{"name": "İçecek"})
	assert.Equal(t, fiber.StatusConflict, code)

	code, body := apitest.Do(t, e.app, "POST", "/api/admin/suppliers", e.admin, fiber.Map{
		"name": "Anadolu Gıda", "email": "satis@anadolu.test", "phone": "555",
	})
	require.Equal(t, fiber.StatusCreated, code)
	var s inventory.SupplierResponse
	apitest.Decode(t, body, &s)

	code, _ = apitest.Do(t, e.app, "POST", "/api/admin/suppliers", e.admin, fiber.Map{
		"name": "Kopya", "email": "satis@anadolu.test",
	})
	assert.Equal(t, fiber.StatusConflict, code)

	code, _ = apitest.Do(t, e.app, "PUT", fmt.Sprintf("/api/admin/suppliers/%d", s.ID), e.admin, fiber.Map{"email": "bozuk"})
	assert.Equal(t, fiber.StatusBadRequest, code)

	var found []inventory.SupplierResponse
	code, body = apitest.Do(t, e.app, "GET", "/api/suppliers?q=anadolu", e.cashier, nil)
	require.Equal(t, fiber.StatusOK, code)
	apitest.Decode(t, body, &found)
	require.Len(t, found, 1)

	code, _ = apitest.Do(t, e.app, "DELETE", fmt.Sprintf("/api/admin/suppliers/%d", s.ID), e.admin, nil)
	assert.Equal(t, fiber.StatusNoContent, code)
}

func xlsxUpload(t *testing.T, branchID uint, rows [][]any) (*bytes.Buffer, string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("branch_id", fmt.Sprint(branchID)))
	part, err := w.CreateFormFile("file", "urunler.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestImportProducts(t *testing.T) {
	e := newEnv(t)
	e.f.Product(t, e.db, "Mevcut Urun", "5", 5)

	body, contentType := xlsxUpload(t, e.f.Branch.ID, [][]any{
		{"Ürün Adı", "Açıklama", "Fiyat", "Stok", "Kategori", "Tedarikçi", "Aktif"},
		{"Çikolata", "Sütlü", "35,50", 40, "Atıştırmalık", "Tatlıcı A.Ş.", "evet"},
		{"Gofret", "", "12", 8, "atıştırmalık", "Tatlıcı A.Ş.", "pasif"},
		{"mevcut urun", "", "5", 1, "Atıştırmalık", "Tatlıcı A.Ş.", ""},
		{"", "", "", "", "", "", ""},
		{"Bozuk", "", "abc", 1, "X", "Y", ""},
	})

	req := httptest.NewRequest("POST", "/api/admin/products/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+e.admin)
	code, out := apitest.Send(t, e.app, req)
	require.Equal(t, fiber.StatusOK, code, string(out))

	var res inventory.ImportResult
	apitest.Decode(t, out, &res)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 6, res.Errors[0].Row)

	var gofret models.Product
	require.NoError(t, e.db.Where("name = ?", "Gofret").First(&gofret).Error)
	assert.False(t, gofret.IsActive)

	var cats int64
	e.db.Model(&models.Category{}).Where("name = ?", "Atıştırmalık").Count(&cats)
	assert.Equal(t, int64(1), cats)
}
