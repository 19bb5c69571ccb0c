// Package main runs the voting session HTTP server with WebSocket live
// tally fan-out and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openvote/backend/config"
	"github.com/openvote/backend/internal/auth"
	"github.com/openvote/backend/internal/middleware"
	"github.com/openvote/backend/internal/realtime"
	"github.com/openvote/backend/internal/sessions"
	"github.com/openvote/backend/internal/settings"
	"github.com/openvote/backend/internal/tally"
	"github.com/openvote/backend/internal/votes"
	"github.com/openvote/backend/pkg/database"
	"github.com/openvote/backend/pkg/redis"
	"github.com/openvote/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth and the registration gate
	authRepo := auth.NewRepository(pool)
	settingsRepo := settings.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, settingsRepo, jwtService, logger)
	settingsHandler := settings.NewHandler(settingsRepo)

	if err := auth.EnsureAdmin(ctx, authRepo, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
		logger.Fatal("admin bootstrap", zap.Error(err))
	}

	// Core: session lifecycle, tally engine, voting coordinator
	sessionRepo := sessions.NewRepository(pool)
	sessionService := sessions.NewService(sessionRepo, logger)

	tallyRepo := tally.NewRepository(pool)
	tallyEngine := tally.NewEngine(tallyRepo, sessionRepo, cfg.Voting.TallyMode)
	tallyHandler := tally.NewHandler(tallyEngine, sessionRepo)

	voteRepo := votes.NewRepository(pool)
	dailyLimit := votes.DailyLimit{Enabled: cfg.Voting.DailyLimit, Zone: cfg.Voting.DailyLimitTZ}
	voteService := votes.NewService(sessionService, voteRepo, tallyEngine, dailyLimit, logger)
	voteHandler := votes.NewHandler(voteService, hub)

	sessionHandler := sessions.NewHandler(sessionService, tallyEngine, voteRepo, hub)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public; register is gated by the registrationsClosed setting)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public reads
	router.GET("/settings", settingsHandler.List)
	router.GET("/sessions", sessionHandler.List)
	router.GET("/sessions/open", middleware.OptionalJWT(jwtService), sessionHandler.Current)
	router.GET("/sessions/:id/result", tallyHandler.Result)
	router.GET("/sessions/:id/actions", tallyHandler.History)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/votes", voteHandler.Cast)

		admin := api.Group("")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.POST("/sessions", sessionHandler.Create)
			admin.PATCH("/sessions/:id", sessionHandler.Update)
			admin.DELETE("/sessions/:id", sessionHandler.Delete)
			admin.POST("/sessions/:id/open", sessionHandler.Open)
			admin.POST("/sessions/:id/close", sessionHandler.Close)
			admin.POST("/admin/registrations", settingsHandler.ToggleRegistrations)
		}
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
