package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/wrenchwise/workshop-api/app/db"
	"github.com/wrenchwise/workshop-api/config"
	"github.com/wrenchwise/workshop-api/internal/api/auth"
	"github.com/wrenchwise/workshop-api/internal/api/customer"
	"github.com/wrenchwise/workshop-api/internal/api/dashboard"
	"github.com/wrenchwise/workshop-api/internal/api/inventory"
	"github.com/wrenchwise/workshop-api/internal/api/notification"
	"github.com/wrenchwise/workshop-api/internal/api/user"
	"github.com/wrenchwise/workshop-api/internal/api/vehicle"
	"github.com/wrenchwise/workshop-api/internal/api/workorder"
	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Gateway *gateway.Gateway

	AuthMiddleware      *auth.Middleware
	AuthHandler         *auth.HandlerImpl
	UserHandler         *user.HandlerImpl
	CustomerHandler     *customer.HandlerImpl
	VehicleHandler      *vehicle.HandlerImpl
	WorkOrderHandler    *workorder.HandlerImpl
	InventoryHandler    *inventory.HandlerImpl
	NotificationHandler *notification.HandlerImpl
	DashboardHandler    *dashboard.HandlerImpl

	Scheduler *scheduler.Scheduler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	gw := gateway.New(pool, logger)

	// User management doubles as the credential store for auth.
	userRepo := user.NewPostgresUserRepo(gw, logger)
	userService := user.NewServiceImpl(userRepo, gw, cfg.Auth.BcryptCost, logger)
	userHandler := user.NewHandlerImpl(userService, logger)

	sessions := auth.NewSessionManager(cfg.Auth.SessionLifetime, cfg.Auth.SecureCookies, logger)
	limiter := auth.NewRateLimiter()
	authRepo := auth.NewPostgresAuthRepo(gw, logger)
	authService := auth.NewAuthService(authRepo, userService, sessions, limiter, cfg.Auth, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	authHandler := auth.NewHandlerImpl(authService, cfg.Auth, logger)

	notificationRepo := notification.NewPostgresNotificationRepo(gw, logger)
	var mailer notification.EmailSender
	if cfg.Mail.Enabled {
		mailer = notification.NewMailgunSender(cfg.Mail)
	}
	notificationService := notification.NewServiceImpl(notificationRepo, mailer, cfg.Mail, logger)
	notificationHandler := notification.NewHandlerImpl(notificationService, logger)

	customerRepo := customer.NewPostgresCustomerRepo(gw, logger)
	customerService := customer.NewServiceImpl(customerRepo, gw, logger)
	customerHandler := customer.NewHandlerImpl(customerService, logger)

	vehicleRepo := vehicle.NewPostgresVehicleRepo(gw, logger)
	vehicleService := vehicle.NewServiceImpl(vehicleRepo, gw, logger)
	vehicleHandler := vehicle.NewHandlerImpl(vehicleService, logger)

	workOrderRepo := workorder.NewPostgresWorkOrderRepo(gw, logger)
	workOrderService := workorder.NewServiceImpl(workOrderRepo, gw, notificationService, logger)
	workOrderHandler := workorder.NewHandlerImpl(workOrderService, logger)

	inventoryRepo := inventory.NewPostgresInventoryRepo(gw, logger)
	inventoryService := inventory.NewServiceImpl(inventoryRepo, gw, notificationService, logger)
	inventoryHandler := inventory.NewHandlerImpl(inventoryService, logger)

	dashboardRepo := dashboard.NewPostgresDashboardRepo(gw, logger)
	dashboardService := dashboard.NewServiceImpl(dashboardRepo, logger)
	dashboardHandler := dashboard.NewHandlerImpl(dashboardService, logger)

	sched := scheduler.New(cfg.Scheduler, authRepo, inventoryService, notificationService, logger)

	return &Container{
		Config:              cfg,
		Logger:              logger,
		Pool:                pool,
		Gateway:             gw,
		AuthMiddleware:      authMiddleware,
		AuthHandler:         authHandler,
		UserHandler:         userHandler,
		CustomerHandler:     customerHandler,
		VehicleHandler:      vehicleHandler,
		WorkOrderHandler:    workOrderHandler,
		InventoryHandler:    inventoryHandler,
		NotificationHandler: notificationHandler,
		DashboardHandler:    dashboardHandler,
		Scheduler:           sched,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
