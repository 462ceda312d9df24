package routes

import (
	"biblio-reserve/internal/adapters/http/handlers"
	"biblio-reserve/internal/adapters/http/middleware"
	"biblio-reserve/internal/adapters/persistence/repositories"
	"biblio-reserve/internal/config"
	"biblio-reserve/internal/core/domain"
	"biblio-reserve/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	reservationRepo := repositories.NewReservationRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo, reservationRepo)
	bookService := services.NewBookService(bookRepo, reservationRepo)
	reservationService := services.NewReservationService(db, reservationRepo, bookRepo, userRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(bookService)
	reservationHandler := handlers.NewReservationHandler(reservationService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public, tighter rate limit, never cached)
	authRoutes := apiV1.Group("/auth")
	authRoutes.Use(middleware.NoCacheHeaders())
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// User management routes
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	setupUserRoutes(userRoutes, userHandler)

	// Book catalog routes
	bookRoutes := apiV1.Group("/books")
	bookRoutes.Use(middleware.AuthMiddleware(cfg))
	setupBookRoutes(bookRoutes, bookHandler)

	// Reservation routes
	reservationRoutes := apiV1.Group("/reservations")
	reservationRoutes.Use(middleware.AuthMiddleware(cfg))
	setupReservationRoutes(reservationRoutes, reservationHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	// Self-service
	router.Put("/me/password", handler.ChangePassword)

	// Listing and creating users have no owner, the permission is mandatory
	router.Get("/", middleware.RequirePermission(domain.PermReadUsers), handler.List)
	router.Post("/", middleware.RequirePermission(domain.PermUpdateUsers), handler.Create)
	router.Put("/:id/permissions", middleware.RequirePermission(domain.PermUpdateUsers), handler.SetPermissions)

	// Owner-or-permission, checked in the handler
	router.Get("/:id", handler.Get)
	router.Put("/:id", handler.Update)
	router.Delete("/:id", handler.Delete)
}

// setupBookRoutes configures book catalog routes
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler) {
	// Reading the catalog is open to any authenticated user
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)

	// Catalog writes have no owner, the permission is mandatory
	router.Post("/", middleware.RequirePermission(domain.PermCreateBooks), handler.Create)
	router.Put("/:id", middleware.RequirePermission(domain.PermUpdateBooks), handler.Update)
	router.Delete("/:id", middleware.RequirePermission(domain.PermDeleteBooks), handler.Delete)
}

// setupReservationRoutes configures reservation lifecycle routes
func setupReservationRoutes(router fiber.Router, handler *handlers.ReservationHandler) {
	router.Post("/", handler.Create)
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Put("/:id", handler.Update)
	router.Put("/:id/return", handler.Return)
	router.Delete("/:id", handler.Delete)
}
