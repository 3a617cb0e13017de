package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seedpool/internal/config"
	cronrunner "seedpool/internal/cron"
	"seedpool/internal/db"
	"seedpool/internal/events"
	"seedpool/internal/handler"
	"seedpool/internal/logger"
	"seedpool/internal/protocol"
	gormrepository "seedpool/internal/repository/gorm"
	"seedpool/internal/vault"
	"seedpool/internal/vault/rest"
	"seedpool/internal/vault/sim"
)

func main() {
	cfgPath := os.Getenv("SP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	vaultClient, tokenClient := buildVaultAdapters(cfg.Vault, logger)

	store := gormrepository.New(dbConn.Gorm)
	hub := events.NewHub(logger)

	engine := protocol.NewEngine(protocol.Options{
		Vault:  vaultClient,
		Token:  tokenClient,
		Repo:   store,
		Hub:    hub,
		Logger: logger,
		Params: cfg.Protocol,
		Roles:  cfg.Roles,
	})

	if err := engine.Load(context.Background()); err != nil {
		logger.Fatal("ledger load failed", zap.Error(err))
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	auth := handler.Auth{Roles: cfg.Roles}

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Engine: engine}
	healthHandler.Register(router)
	poolHandler := &handler.PoolHandler{Engine: engine, Auth: auth, Logger: logger}
	poolHandler.Register(router)
	governanceHandler := &handler.GovernanceHandler{Engine: engine, Auth: auth, Logger: logger}
	governanceHandler.Register(router)
	compensationHandler := &handler.CompensationHandler{Engine: engine, Auth: auth, Logger: logger}
	compensationHandler.Register(router)
	dormancyHandler := &handler.DormancyHandler{Engine: engine, Auth: auth, Logger: logger}
	dormancyHandler.Register(router)
	statusHandler := &handler.StatusHandler{Engine: engine, Repo: store}
	statusHandler.Register(router)
	wsHandler := &handler.EventsWSHandler{Hub: hub, Logger: logger}
	wsHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		if err := cronRunner.Schedule(cfg.Cron, engine, cfg.Roles.Admin); err != nil {
			logger.Warn("cron schedule failed", zap.Error(err))
		} else {
			cronRunner.Start()
			defer cronRunner.Stop()
		}
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildVaultAdapters selects the vault/token implementations. The simulator
// backs dev runs; production points at the custody gateway over REST.
func buildVaultAdapters(cfg config.VaultConfig, logger *zap.Logger) (vault.Vault, vault.Token) {
	if strings.EqualFold(cfg.Mode, "rest") {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		client := rest.NewClient(httpClient, cfg.BaseURL)
		logger.Info("vault adapter: rest", zap.String("base_url", cfg.BaseURL))
		return client, client
	}
	s := sim.New()
	logger.Info("vault adapter: sim")
	return s, s
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Api-Key,X-Caller-Address")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
