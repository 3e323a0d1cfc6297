package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/salarypath/backend/internal/config"
	"github.com/salarypath/backend/internal/database"
	"github.com/salarypath/backend/internal/handlers"
	"github.com/salarypath/backend/internal/mailer"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/services"
	"github.com/salarypath/backend/pkg/logger"
	"github.com/salarypath/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	utils.ConfigureEncryption(cfg.JWT.Secret)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	mailClient := mailer.NewClient(cfg.Email)
	auditService := services.NewAuditService(db)
	stepUpService := services.NewStepUpService(db, mailClient, auditService)

	authHandler := handlers.NewAuthHandler(db, auditService)
	usersHandler := handlers.NewUsersHandler(db)
	companiesHandler := handlers.NewCompaniesHandler(db)
	positionsHandler := handlers.NewPositionsHandler(db)
	careerEventsHandler := handlers.NewCareerEventsHandler(db)
	financeSettingsHandler := handlers.NewFinanceSettingsHandler(db)
	scenariosHandler := handlers.NewScenariosHandler(db)
	stepUpHandler := handlers.NewStepUpHandler(stepUpService)
	totpHandler := handlers.NewTOTPHandler(db, auditService)
	auditHandler := handlers.NewAuditHandler(db)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
