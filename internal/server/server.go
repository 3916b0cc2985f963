package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grachmannico95/bankline/internal/config"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/handler"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/internal/realtime"
	"github.com/grachmannico95/bankline/pkg/logger"
)

// Handlers bundles every route handler the server mounts.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Account      *handler.AccountHandler
	Transaction  *handler.TransactionHandler
	Deposit      *handler.DepositHandler
	Loan         *handler.LoanHandler
	Card         *handler.CardHandler
	Notification *handler.NotificationHandler
	Support      *handler.SupportHandler
	Admin        *handler.AdminHandler
	Data         *handler.DataHandler
}

func NewHandlers(repo domain.Repository, revoker handler.TokenRevoker, hub *realtime.Hub, log *logger.Logger) Handlers {
	return Handlers{
		Health:       handler.NewHealthHandler(hub),
		Auth:         handler.NewAuthHandler(repo, revoker, log),
		Account:      handler.NewAccountHandler(repo, log),
		Transaction:  handler.NewTransactionHandler(repo, log),
		Deposit:      handler.NewDepositHandler(repo, log),
		Loan:         handler.NewLoanHandler(repo, log),
		Card:         handler.NewCardHandler(repo, log),
		Notification: handler.NewNotificationHandler(repo, log),
		Support:      handler.NewSupportHandler(repo, log),
		Admin:        handler.NewAdminHandler(repo, log),
		Data:         handler.NewDataHandler(repo, hub, log),
	}
}

type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	logger   *logger.Logger
	repo     domain.Repository
	handlers Handlers
	once     sync.Once
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	repo domain.Repository,
	handlers Handlers,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &Server{
		echo:     e,
		cfg:      cfg,
		logger:   log,
		repo:     repo,
		handlers: handlers,
	}
}

func (s *Server) Start() error {
	s.setup()

	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info(context.Background(), "Starting HTTP server",
		"address", addr,
	)

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setup() {
	s.once.Do(func() {
		s.setupMiddleware()
		s.setupRoutes()
	})
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middleware.HeaderIdempotencyKey,
			middleware.HeaderTraceID,
		},
	}))
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Logging(s.logger))
	s.echo.Use(middleware.Metrics())
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.echo.GET("/health", h.Health.Check)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := s.echo.Group("/api/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/logout", h.Auth.Logout)

	api := s.echo.Group("/api", middleware.Auth(s.repo), middleware.Idempotency(s.repo, s.logger))
	admin := middleware.RequireRole(domain.RoleAdmin, domain.RoleDeveloper)

	api.GET("/account/me", h.Account.Me)
	api.PUT("/account/profile", h.Account.UpdateProfile)
	api.PUT("/account/:id/status", h.Account.UpdateStatus, admin)

	api.GET("/transaction/history", h.Transaction.History)
	api.POST("/transaction/transfer", h.Transaction.Transfer)

	api.POST("/deposit/request", h.Deposit.Request)
	api.GET("/deposit/requests", h.Deposit.List)
	api.POST("/deposit/action", h.Deposit.Action, admin)

	api.POST("/loan/apply", h.Loan.Apply)
	api.GET("/loan", h.Loan.List)
	api.GET("/loan/:id/emi", h.Loan.Schedule)
	api.POST("/loan/:id/emi", h.Loan.PayEMI)

	api.GET("/card", h.Card.List)
	api.PUT("/card/:id/status", h.Card.SetStatus)

	api.GET("/notification", h.Notification.List)
	api.PUT("/notification/read-all", h.Notification.MarkAllRead)
	api.PUT("/notification/:id/read", h.Notification.MarkRead)

	api.POST("/support/ticket", h.Support.Create)
	api.GET("/support/ticket", h.Support.List)
	api.POST("/support/ticket/:id/reply", h.Support.Reply)

	api.GET("/admin/users", h.Admin.Users, admin)
	api.GET("/admin/stats", h.Admin.Stats, admin)
	api.GET("/analytics/overview", h.Admin.Analytics, admin)
	api.GET("/audit/logs", h.Admin.AuditLogs, admin)

	api.GET("/data/versions", h.Data.Versions)
	api.GET("/data/summary", h.Data.Summary)
	api.GET("/data/stream", h.Data.Stream)
	api.GET("/data/ws", h.Data.WebSocket)
}

func (s *Server) Handler() *echo.Echo {
	s.setup()
	return s.echo
}
