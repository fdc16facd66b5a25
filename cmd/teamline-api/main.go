package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvukovic/teamline-api/internal/cache"
	"github.com/dvukovic/teamline-api/internal/config"
	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/handlers"
	authmw "github.com/dvukovic/teamline-api/internal/middleware"
	"github.com/dvukovic/teamline-api/internal/observability/logger"
	"github.com/dvukovic/teamline-api/internal/observability/metrics"
	"github.com/dvukovic/teamline-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	store := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := store.Ping(ctx); err != nil {
		log.Warn("redis unreachable, falling back to in-memory token store",
			zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = store.Close()
		store = cache.NewMemory()
	}
	defer func() { _ = store.Close() }()

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db, cfg.ResetTokenTTL)
	tokenService := services.NewTokenService(store)
	teamService := services.NewTeamService(db, cfg.InviteTTL)
	projectService := services.NewProjectService(db)
	emailService := services.NewEmailService(cfg.SMTP)

	authHandler := handlers.NewAuthHandler(cfg, userService, tokenService, jwtService, emailService)
	userHandler := handlers.NewUserHandler(userService, tokenService)
	teamHandler := handlers.NewTeamHandler(teamService)
	inviteHandler := handlers.NewInviteHandler(teamService, userService, emailService, cfg.BaseURL)
	projectHandler := handlers.NewProjectHandler(projectService, teamService)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/:provider/consent", authHandler.GetConsentURL)
	auth.Get("/:provider/callback", authHandler.Callback)
	auth.Post("/exchange", authHandler.ExchangeCode)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)
	protected.Delete("/users/me", userHandler.DeactivateMe)

	protected.Get("/teams", teamHandler.List)
	protected.Post("/teams", teamHandler.Create)
	protected.Get("/teams/:id", teamHandler.Get)
	protected.Patch("/teams/:id", teamHandler.Update)
	protected.Delete("/teams/:id", teamHandler.Delete)
	protected.Get("/teams/:id/members", teamHandler.GetMembers)
	protected.Delete("/teams/:id/members/:memberId", teamHandler.RemoveMember)
	protected.Patch("/teams/:id/members/:memberId/role", teamHandler.ChangeMemberRole)
	protected.Post("/teams/:id/leave", teamHandler.LeaveTeam)

	protected.Get("/teams/:id/invites", inviteHandler.ListTeamInvites)
	protected.Post("/teams/:id/invites", inviteHandler.CreateInvite)
	protected.Delete("/teams/:id/invites/:inviteId", inviteHandler.CancelInvite)

	protected.Get("/invites", inviteHandler.ListMyInvites)
	protected.Post("/invites/:token/accept", inviteHandler.AcceptInvite)
	protected.Post("/invites/:token/reject", inviteHandler.RejectInvite)

	protected.Get("/teams/:id/projects", projectHandler.List)
	protected.Post("/teams/:id/projects", projectHandler.Create)
	protected.Patch("/projects/:projectId", projectHandler.Rename)
	protected.Post("/projects/:projectId/archive", projectHandler.Archive)
	protected.Post("/projects/:projectId/unarchive", projectHandler.Unarchive)
	protected.Post("/projects/:projectId/move", projectHandler.Move)
	protected.Delete("/projects/:projectId", projectHandler.Delete)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	// Public invite pages reached from the email link (no auth required)
	app.Get("/invites/:token", inviteHandler.ViewInvite)
	app.Post("/invites/:token/accept", inviteHandler.AcceptInvitePage)
	app.Post("/invites/:token/decline", inviteHandler.DeclineInvitePage)

	// Hourly sweep marks overdue pending invitations as expired.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			n, err := teamService.ExpireStale(context.Background())
			if err != nil {
				log.Warn("invite expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				metrics.RecordInvitesExpired(n)
				log.Info("expired stale invitations", zap.Int64("count", n))
			}
		}
	}()

	metricsHandler := metrics.Register()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics server starting", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: metrics.WithMetrics(app),
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
