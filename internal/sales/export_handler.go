package sales

import (
	"fmt"
	"time"

	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Satışlar"

var exportHeader = []any{"ID", "Tarih", "Şube", "Ürün", "Müşteri", "Adet", "Vergi %", "İndirim %", "Tutar", "Durum"}

// GET /api/sales/export (liste ile aynı filtreler, sayfalama yok)
func ExportSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := filteredSales(c)
		if err != nil {
			return err
		}

		var list []models.Sale
		if err := dbq.Preload("Product").Preload("Branch").
			Order("sales.created_at DESC, sales.id DESC").
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satışlar okunamadı")
		}

		f := excelize.NewFile()
		defer f.Close()

		if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
			return err
		}

		for i, s := range list {
			cellRef, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			tax, _ := s.Tax.Float64()
			discount, _ := s.Discount.Float64()
			total, _ := s.TotalAmount.Float64()
			row := []any{
				s.ID,
				s.CreatedAt.Format("2006-01-02 15:04"),
				s.Branch.Name,
				s.Product.Name,
				s.CustomerName,
				s.Quantity,
				tax,
				discount,
				total,
				string(s.Status),
			}
			if err := f.SetSheetRow(exportSheet, cellRef, &row); err != nil {
				return err
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			zap.L().Error("sales export failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Excel oluşturulamadı")
		}

		filename := fmt.Sprintf("satislar-%s.xlsx", time.Now().Format("20060102-1504"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(buf.Bytes())
	}
}
