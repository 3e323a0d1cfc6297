package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/salarypath/backend/internal/mailer"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/internal/services"
	"github.com/salarypath/backend/pkg/logger"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	mailer *fakeMailer
}

// fakeMailer records deliveries instead of calling the provider. Setting fail
// makes every Send return a delivery error.
type fakeMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	fail     error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMailer) sent() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mailer.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeMailer) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
		utils.ConfigureEncryption("test-secret")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Position{},
		&models.CareerEvent{},
		&models.FinanceSettings{},
		&models.Scenario{},
		&models.OtpChallenge{},
		&models.RouteAccessGrant{},
		&models.TOTPCredential{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	sender := &fakeMailer{}
	auditService := services.NewAuditService(db)
	stepUpService := services.NewStepUpService(db, sender, auditService)

	authHandler := NewAuthHandler(db, auditService)
	usersHandler := NewUsersHandler(db)
	companiesHandler := NewCompaniesHandler(db)
	positionsHandler := NewPositionsHandler(db)
	careerEventsHandler := NewCareerEventsHandler(db)
	financeSettingsHandler := NewFinanceSettingsHandler(db)
	scenariosHandler := NewScenariosHandler(db)
	stepUpHandler := NewStepUpHandler(stepUpService)
	totpHandler := NewTOTPHandler(db, auditService)
	auditHandler := NewAuditHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)
	stepUpMiddleware := middleware.NewStepUpMiddleware(stepUpService)

	app := fiber.New(fiber.Config{BodyLimit: 1 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)
	userRoutes.Delete("/:id", usersHandler.Delete)

	companyRoutes := api.Group("/companies", authMiddleware.RequireAuth)
	companyRoutes.Post("/", companiesHandler.Create)
	companyRoutes.Get("/", companiesHandler.List)
	companyRoutes.Get("/:id", companiesHandler.Get)
	companyRoutes.Put("/:id", companiesHandler.Update)
	companyRoutes.Delete("/:id", companiesHandler.Delete)

	positionRoutes := api.Group("/positions", authMiddleware.RequireAuth)
	positionRoutes.Post("/", positionsHandler.Create)
	positionRoutes.Get("/", positionsHandler.List)
	positionRoutes.Get("/:id", positionsHandler.Get)
	positionRoutes.Put("/:id", positionsHandler.Update)
	positionRoutes.Delete("/:id", positionsHandler.Delete)

	eventRoutes := api.Group("/career-events", authMiddleware.RequireAuth)
	eventRoutes.Post("/", careerEventsHandler.Create)
	eventRoutes.Get("/", careerEventsHandler.List)
	eventRoutes.Delete("/:id", careerEventsHandler.Delete)

	financeRoutes := api.Group("/finance-settings", authMiddleware.RequireAuth)
	financeRoutes.Get("/", financeSettingsHandler.Get)
	financeRoutes.Put("/", financeSettingsHandler.Update)

	scenarioRoutes := api.Group("/scenarios", authMiddleware.RequireAuth)
	scenarioRoutes.Post("/", scenariosHandler.Create)
	scenarioRoutes.Get("/", scenariosHandler.List)
	scenarioRoutes.Get("/compare", stepUpMiddleware.Require(services.RouteKeyComparison), scenariosHandler.Compare)
	scenarioRoutes.Put("/:id", scenariosHandler.Update)
	scenarioRoutes.Delete("/:id", scenariosHandler.Delete)

	stepUpRoutes := api.Group("/step-up", authMiddleware.RequireAuth)
	stepUpRoutes.Post("/send", stepUpHandler.Send)
	stepUpRoutes.Post("/verify", stepUpHandler.Verify)
	stepUpRoutes.Get("/status", stepUpHandler.Status)

	totpRoutes := api.Group("/totp", authMiddleware.RequireAuth)
	totpRoutes.Get("/status", totpHandler.Status)
	totpRoutes.Post("/setup", totpHandler.Setup)
	totpRoutes.Post("/verify-setup", totpHandler.VerifySetup)
	totpRoutes.Post("/disable", totpHandler.Disable)

	api.Get("/audit-log", authMiddleware.RequireAuth, middleware.AdminOnly, auditHandler.List)

	return &testEnv{app: app, db: db, mailer: sender}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
