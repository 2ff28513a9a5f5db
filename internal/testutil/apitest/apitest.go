// Package apitest HTTP handler testleri için uygulama, kullanıcı ve istek yardımcıları.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"magaza-backend/internal/auth"
	"magaza-backend/internal/config"
	"magaza-backend/internal/httperr"
	"magaza-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const Password = "parola123"

func Config() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret-0123456789-0123456789-abc",
		Stock: config.StockConfig{
			LowStockThreshold: 10,
		},
	}
}

// NewApp /api altında JWT korumalı bir grup hazırlar; routes bu gruba eklenir.
func NewApp(cfg *config.Config, routes func(api fiber.Router)) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler(nil)})
	api := app.Group("/api", auth.JWTMiddleware(cfg))
	routes(api)
	return app
}

func User(t testing.TB, db *gorm.DB, role models.UserRole, branchID *uint) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := models.User{
		Name:         string(role) + " kullanıcı",
		Email:        uuid.NewString() + "@magaza.test",
		PasswordHash: string(hash),
		Role:         role,
		BranchID:     branchID,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return u
}

func Token(t testing.TB, cfg *config.Config, u models.User) string {
	t.Helper()

	tok, err := auth.GenerateToken(cfg.JWTSecret, &u)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

// Do isteği gönderir; body nil değilse JSON olarak kodlanır.
func Do(t testing.TB, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return Send(t, app, req)
}

func Send(t testing.TB, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

// Decode cevap gövdesini v'ye çözer.
func Decode(t testing.TB, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
}
