package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"magaza-backend/internal/audit"
	"magaza-backend/internal/auth"
	"magaza-backend/internal/database"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const perPage = 10

type CreateInvoiceRequest struct {
	Type         models.InvoiceType `json:"type"`
	SupplierID   *uint              `json:"supplier_id"`
	CustomerID   *uint              `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	DueDate      string             `json:"due_date"` // YYYY-MM-DD
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	TaxAmount    decimal.Decimal    `json:"tax_amount"`
	Discount     decimal.Decimal    `json:"discount"`
	Status       models.SaleStatus  `json:"status"`
	Notes        string             `json:"notes"`
	Sales        []uint             `json:"sales"`
	BranchID     *uint              `json:"branch_id"` // admin; şube adı faturaya yazılır
}

type UpdateInvoiceRequest struct {
	SupplierID   *uint              `json:"supplier_id"`
	CustomerID   *uint              `json:"customer_id"`
	CustomerName *string            `json:"customer_name"`
	DueDate      *string            `json:"due_date"`
	TotalAmount  *decimal.Decimal   `json:"total_amount"`
	TaxAmount    *decimal.Decimal   `json:"tax_amount"`
	Discount     *decimal.Decimal   `json:"discount"`
	Status       *models.SaleStatus `json:"status"`
	Notes        *string            `json:"notes"`
}

type Party struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type InvoiceSaleResponse struct {
	ID          uint              `json:"id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      models.SaleStatus `json:"status"`
}

type InvoiceResponse struct {
	ID                 uint                  `json:"id"`
	InvoiceNumber      string                `json:"invoice_number"`
	Type               models.InvoiceType    `json:"type"`
	Status             models.SaleStatus     `json:"status"`
	Branch             string                `json:"branch"`
	CustomerName       string                `json:"customer_name"`
	Customer           *Party                `json:"customer"`
	Supplier           *Party                `json:"supplier"`
	DueDate            *string               `json:"due_date"`
	TotalAmount        decimal.Decimal       `json:"total_amount"`
	TaxAmount          decimal.Decimal       `json:"tax_amount"`
	Discount           decimal.Decimal       `json:"discount"`
	ComputedSalesTotal decimal.Decimal       `json:"computed_sales_total"`
	Difference         decimal.Decimal       `json:"difference"`
	SalesCount         int                   `json:"sales_count"`
	Sales              []InvoiceSaleResponse `json:"sales"`
	Notes              string                `json:"notes"`
	CreatedAt          string                `json:"created_at"`
	UpdatedAt          string                `json:"updated_at"`
}

type Summary struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Paid     int64 `json:"paid"`
	Canceled int64 `json:"canceled"`
}

type InvoiceListResponse struct {
	Data    []InvoiceResponse `json:"data"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
	Summary Summary           `json:"summary"`
}

// NewNumber INV- ön ekli, büyük harfli benzersiz fatura numarası üretir.
func NewNumber() string {
	return "INV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:13])
}

func toInvoiceResponse(inv models.Invoice) InvoiceResponse {
	r := InvoiceResponse{
		ID:                 inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		Type:               inv.Type,
		Status:             inv.Status,
		Branch:             inv.Branch,
		CustomerName:       inv.CustomerName,
		TotalAmount:        inv.TotalAmount,
		TaxAmount:          inv.TaxAmount,
		Discount:           inv.Discount,
		ComputedSalesTotal: decimal.Zero,
		Sales:              make([]InvoiceSaleResponse, 0, len(inv.Lines)),
		Notes:              inv.Notes,
		CreatedAt:          inv.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:          inv.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if inv.Customer != nil {
		r.Customer = &Party{ID: inv.Customer.ID, Name: inv.Customer.Name}
	}
	if inv.Supplier != nil {
		r.Supplier = &Party{ID: inv.Supplier.ID, Name: inv.Supplier.Name}
	}
	if inv.DueDate != nil {
		d := inv.DueDate.Format("2006-01-02")
		r.DueDate = &d
	}

	// satış tutarları güncel satış kayıtlarından toplanır
	for _, line := range inv.Lines {
		r.ComputedSalesTotal = r.ComputedSalesTotal.Add(line.Sale.TotalAmount)
		r.Sales = append(r.Sales, InvoiceSaleResponse{
			ID:          line.Sale.ID,
			TotalAmount: line.Sale.TotalAmount,
			Status:      line.Sale.Status,
		})
	}
	r.SalesCount = len(r.Sales)
	r.Difference = inv.TotalAmount.Sub(r.ComputedSalesTotal)
	return r
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Customer").Preload("Supplier").Preload("Lines.Sale")
}

// scope kasiyeri kendi şubesinin faturalarına sınırlar (faturada şube adı tutulur).
func scope(c *fiber.Ctx, db *gorm.DB) (*gorm.DB, error) {
	role, err := auth.Role(c)
	if err != nil {
		return nil, err
	}
	if role == models.RoleAdmin {
		return db, nil
	}

	bid, err := auth.ResolveBranchID(c, nil)
	if err != nil {
		return nil, err
	}
	var branch models.Branch
	if err := database.DB.First(&branch, bid).Error; err != nil {
		return db.Where("1 = 0"), nil
	}
	return db.Where("invoices.branch = ?", branch.Name), nil
}

func loadInvoice(c *fiber.Ctx) (models.Invoice, error) {
	var inv models.Invoice
	dbq, err := scope(c, withRelations(database.DB))
	if err != nil {
		return inv, err
	}
	if err := dbq.First(&inv, "invoices.id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inv, fiber.NewError(fiber.StatusNotFound, "Fatura bulunamadı")
		}
		return inv, fiber.NewError(fiber.StatusInternalServerError, "Fatura okunamadı")
	}
	return inv, nil
}

func parseDueDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "due_date YYYY-MM-DD olmalı")
	}
	return &d, nil
}

func checkAmounts(amounts ...decimal.Decimal) error {
	for _, a := range amounts {
		if a.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Tutarlar negatif olamaz")
		}
	}
	return nil
}

func customerName(id *uint, fallback string) (string, error) {
	if id == nil {
		return strings.TrimSpace(fallback), nil
	}
	var cu models.Customer
	if err := database.DB.First(&cu, "id = ?", *id).Error; err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Müşteri bulunamadı")
	}
	return cu.Name, nil
}

func checkSupplier(id *uint) error {
	if id == nil {
		return nil
	}
	var count int64
	database.DB.Model(&models.Supplier{}).Where("id = ?", *id).Count(&count)
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Tedarikçi bulunamadı")
	}
	return nil
}

// POST /api/invoices
func CreateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInvoiceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		if !body.Type.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Tip purchase veya sale olmalı")
		}
		if body.Status == "" {
			body.Status = models.SaleStatusPending
		}
		if !body.Status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Durum pending, paid veya canceled olmalı")
		}
		if err := checkAmounts(body.TotalAmount, body.TaxAmount, body.Discount); err != nil {
			return err
		}
		if err := checkSupplier(body.SupplierID); err != nil {
			return err
		}
		name, err := customerName(body.CustomerID, body.CustomerName)
		if err != nil {
			return err
		}
		dueDate, err := parseDueDate(body.DueDate)
		if err != nil {
			return err
		}

		// şube: kasiyer için kendi şubesi, admin için seçilen şube (opsiyonel)
		var branchName string
		var branchID *uint
		role, err := auth.Role(c)
		if err != nil {
			return err
		}
		if role == models.RoleCashier || body.BranchID != nil {
			bid, err := auth.ResolveBranchID(c, body.BranchID)
			if err != nil {
				return err
			}
			var branch models.Branch
			if err := database.DB.First(&branch, bid).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Şube bulunamadı")
			}
			branchName = branch.Name
			branchID = &branch.ID
		}

		inv := models.Invoice{
			InvoiceNumber: NewNumber(),
			Type:          body.Type,
			SupplierID:    body.SupplierID,
			CustomerID:    body.CustomerID,
			CustomerName:  name,
			DueDate:       dueDate,
			TotalAmount:   body.TotalAmount.Round(2),
			TaxAmount:     body.TaxAmount.Round(2),
			Discount:      body.Discount.Round(2),
			Status:        body.Status,
			Notes:         strings.TrimSpace(body.Notes),
			Branch:        branchName,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var saleRows []models.Sale
			if len(body.Sales) > 0 {
				q := tx.Where("id IN ?", body.Sales)
				if role == models.RoleCashier {
					q = q.Where("branch_id = ?", *branchID)
				}
				if err := q.Find(&saleRows).Error; err != nil {
					return err
				}
				if len(saleRows) != len(uniq(body.Sales)) {
					return fiber.NewError(fiber.StatusBadRequest, "Satışlardan bazıları bulunamadı")
				}
			}

			if err := tx.Omit(clause.Associations).Create(&inv).Error; err != nil {
				return err
			}

			for _, s := range saleRows {
				total := s.TotalAmount
				line := models.InvoiceSale{InvoiceID: inv.ID, SaleID: s.ID, LineTotal: &total}
				if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Fatura oluşturulamadı")
		}

		var created models.Invoice
		if err := withRelations(database.DB).First(&created, inv.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fatura okunamadı")
		}
		resp := toInvoiceResponse(created)

		audit.Record(c, database.DB, audit.LogOptions{
			BranchID:    branchID,
			EntityType:  "invoice",
			EntityID:    created.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Fatura: %s (%s)", created.InvoiceNumber, created.TotalAmount.StringFixed(2)),
			After:       resp,
		})

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GET /api/invoices?status=paid&type=sale&q=INV-&page=1
func ListInvoicesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		base, err := scope(c, database.DB.Model(&models.Invoice{}))
		if err != nil {
			return err
		}

		dbq := base.Session(&gorm.Session{})
		if status := models.SaleStatus(c.Query("status")); status != "" {
			if !status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz durum")
			}
			dbq = dbq.Where("status = ?", status)
		}
		if typ := models.InvoiceType(c.Query("type")); typ != "" {
			if !typ.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz tip")
			}
			dbq = dbq.Where("type = ?", typ)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(invoice_number) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
		}

		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}

		res := InvoiceListResponse{Page: page, PerPage: perPage}
		if err := dbq.Session(&gorm.Session{}).Count(&res.Summary.Total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Faturalar listelenemedi")
		}

		// durum özeti filtrelerden bağımsız, sadece şube kapsamına göre
		var grouped []struct {
			Status models.SaleStatus
			Total  int64
		}
		if err := base.Session(&gorm.Session{}).Select("status, COUNT(*) AS total").Group("status").Scan(&grouped).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Faturalar listelenemedi")
		}
		for _, g := range grouped {
			switch g.Status {
			case models.SaleStatusPending:
				res.Summary.Pending = g.Total
			case models.SaleStatusPaid:
				res.Summary.Paid = g.Total
			case models.SaleStatusCanceled:
				res.Summary.Canceled = g.Total
			}
		}

		var list []models.Invoice
		if err := withRelations(dbq).
			Order("created_at DESC, id DESC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Faturalar listelenemedi")
		}

		res.Data = make([]InvoiceResponse, 0, len(list))
		for _, inv := range list {
			res.Data = append(res.Data, toInvoiceResponse(inv))
		}
		return c.JSON(res)
	}
}

// GET /api/invoices/:id
func GetInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		inv, err := loadInvoice(c)
		if err != nil {
			return err
		}
		return c.JSON(toInvoiceResponse(inv))
	}
}

// PUT /api/invoices/:id
func UpdateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		inv, err := loadInvoice(c)
		if err != nil {
			return err
		}

		var body UpdateInvoiceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		updates := map[string]any{}
		if body.SupplierID != nil {
			if err := checkSupplier(body.SupplierID); err != nil {
				return err
			}
			updates["supplier_id"] = *body.SupplierID
		}
		if body.CustomerName != nil {
			updates["customer_name"] = strings.TrimSpace(*body.CustomerName)
		}
		if body.CustomerID != nil {
			// müşteri verilirse ad müşteri kaydından alınır
			name, err := customerName(body.CustomerID, "")
			if err != nil {
				return err
			}
			updates["customer_id"] = *body.CustomerID
			updates["customer_name"] = name
		}
		if body.DueDate != nil {
			d, err := parseDueDate(*body.DueDate)
			if err != nil {
				return err
			}
			updates["due_date"] = d
		}
		for col, v := range map[string]*decimal.Decimal{
			"total_amount": body.TotalAmount,
			"tax_amount":   body.TaxAmount,
			"discount":     body.Discount,
		} {
			if v == nil {
				continue
			}
			if err := checkAmounts(*v); err != nil {
				return err
			}
			updates[col] = v.Round(2)
		}
		if body.Status != nil {
			if !body.Status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Durum pending, paid veya canceled olmalı")
			}
			updates["status"] = *body.Status
		}
		if body.Notes != nil {
			updates["notes"] = strings.TrimSpace(*body.Notes)
		}

		if len(updates) > 0 {
			if err := database.DB.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Fatura güncellenemedi")
			}
		}

		var updated models.Invoice
		if err := withRelations(database.DB).First(&updated, inv.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fatura okunamadı")
		}
		return c.JSON(toInvoiceResponse(updated))
	}
}

// DELETE /api/invoices/:id
// Bağlı satışlar silinmez, sadece bağ kaldırılır.
func DeleteInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		inv, err := loadInvoice(c)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceSale{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Invoice{}, inv.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fatura silinemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			EntityType:  "invoice",
			EntityID:    inv.ID,
			Action:      models.AuditActionDelete,
			Description: "Fatura silindi: " + inv.InvoiceNumber,
			Before:      toInvoiceResponse(inv),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
