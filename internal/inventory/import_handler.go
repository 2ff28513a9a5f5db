package inventory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"magaza-backend/internal/audit"
	"magaza-backend/internal/auth"
	"magaza-backend/internal/database"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Beklenen kolonlar: ürün adı | açıklama | fiyat | stok | kategori | tedarikçi | aktif (opsiyonel)
const (
	colName = iota
	colDescription
	colPrice
	colStock
	colCategory
	colSupplier
	colActive
)

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}

type importRow struct {
	name, description  string
	price              decimal.Decimal
	stock              int
	category, supplier string
	active             bool
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	return strings.Contains(first, "ÜRÜN") || strings.Contains(first, "URUN") ||
		strings.Contains(first, "PRODUCT") || first == "NAME" || first == "AD"
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseImportRow(row []string) (importRow, error) {
	r := importRow{
		name:        cell(row, colName),
		description: cell(row, colDescription),
		category:    cell(row, colCategory),
		supplier:    cell(row, colSupplier),
		active:      true,
	}
	if r.name == "" {
		return r, fmt.Errorf("ürün adı boş")
	}
	if r.category == "" || r.supplier == "" {
		return r, fmt.Errorf("kategori ve tedarikçi zorunlu")
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(cell(row, colPrice), ",", "."))
	if err != nil || price.IsNegative() {
		return r, fmt.Errorf("geçersiz fiyat: %q", cell(row, colPrice))
	}
	r.price = price.Round(2)

	if s := cell(row, colStock); s != "" {
		r.stock, err = strconv.Atoi(s)
		if err != nil || r.stock < 0 {
			return r, fmt.Errorf("geçersiz stok: %q", s)
		}
	}

	switch strings.ToLower(cell(row, colActive)) {
	case "", "1", "true", "evet", "aktif", "yes":
	case "0", "false", "hayır", "hayir", "pasif", "no":
		r.active = false
	default:
		return r, fmt.Errorf("geçersiz aktiflik değeri: %q", cell(row, colActive))
	}
	return r, nil
}

// Kategori ve tedarikçi adları büyük-küçük harf duyarsız eşlenir.
func firstOrCreateCategory(tx *gorm.DB, cache map[string]uint, name string) (uint, error) {
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}
	var cat models.Category
	err := tx.Where("LOWER(name) = ?", key).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cat = models.Category{Name: name}
		err = tx.Create(&cat).Error
	}
	if err != nil {
		return 0, err
	}
	cache[key] = cat.ID
	return cat.ID, nil
}

func firstOrCreateSupplier(tx *gorm.DB, cache map[string]uint, name string) (uint, error) {
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}
	var s models.Supplier
	err := tx.Where("LOWER(name) = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = models.Supplier{Name: name}
		err = tx.Create(&s).Error
	}
	if err != nil {
		return 0, err
	}
	cache[key] = s.ID
	return s.ID, nil
}

// POST /api/admin/products/import (multipart: file, branch_id)
// Aynı şubede aynı isimde ürün varsa satır atlanır.
func ImportProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var bid uint
		if v := c.FormValue("branch_id"); v != "" {
			if _, err := fmt.Sscan(v, &bid); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "branch_id geçersiz")
			}
		}
		branchID, err := auth.ResolveBranchID(c, &bid)
		if err != nil {
			return err
		}
		if !exists(&models.Branch{}, branchID) {
			return fiber.NewError(fiber.StatusBadRequest, "Şube bulunamadı")
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya yüklenemedi: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Sadece .xlsx dosyaları yüklenebilir")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya açılamadı: "+err.Error())
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası okunamadı: "+err.Error())
		}
		defer excelFile.Close()

		sheetList := excelFile.GetSheetList()
		if len(sheetList) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyasında sheet bulunamadı")
		}

		rows, err := excelFile.GetRows(sheetList[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sheet okunamadı: "+err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası boş")
		}

		start := 0
		if isHeaderRow(rows[0]) {
			start = 1
		}

		result := ImportResult{Errors: []ImportRowError{}}
		categories := map[string]uint{}
		suppliers := map[string]uint{}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			for i := start; i < len(rows); i++ {
				line := i + 1 // Excel satır numarası
				if len(strings.Join(rows[i], "")) == 0 {
					continue
				}

				r, err := parseImportRow(rows[i])
				if err != nil {
					result.Errors = append(result.Errors, ImportRowError{Row: line, Error: err.Error()})
					continue
				}

				var dup int64
				tx.Model(&models.Product{}).Where("branch_id = ? AND LOWER(name) = ?", branchID, strings.ToLower(r.name)).Count(&dup)
				if dup > 0 {
					result.Skipped++
					continue
				}

				categoryID, err := firstOrCreateCategory(tx, categories, r.category)
				if err != nil {
					return err
				}
				supplierID, err := firstOrCreateSupplier(tx, suppliers, r.supplier)
				if err != nil {
					return err
				}

				p := models.Product{
					Name:          r.name,
					Description:   r.description,
					Price:         r.price,
					StockQuantity: r.stock,
					IsActive:      r.active,
					LowStockState: models.LowStockNormal,
					CategoryID:    categoryID,
					SupplierID:    supplierID,
					BranchID:      branchID,
				}
				if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
					return err
				}
				result.Created++
			}
			return nil
		})
		if err != nil {
			zap.L().Error("product import failed", zap.Uint("branch_id", branchID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler içe aktarılamadı")
		}

		if result.Created > 0 {
			audit.Record(c, database.DB, audit.LogOptions{
				BranchID:    &branchID,
				EntityType:  "product_import",
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Excel'den %d ürün eklendi (%s)", result.Created, fileHeader.Filename),
				After:       result,
			})
		}

		return c.JSON(result)
	}
}
