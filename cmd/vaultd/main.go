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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"vaultd/internal/config"
	cronrunner "vaultd/internal/cron"
	"vaultd/internal/db"
	"vaultd/internal/handler"
	"vaultd/internal/identity"
	"vaultd/internal/logger"
	"vaultd/internal/registry"
	gormrepository "vaultd/internal/repository/gorm"
	"vaultd/internal/roles"
	"vaultd/internal/service"
	"vaultd/internal/stream"
	"vaultd/internal/token"
	"vaultd/internal/vault"

	_ "vaultd/docs"
)

func main() {
	cfgPath := os.Getenv("VAULT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("VAULT_ENV_ONLY"); envOnlyRaw != "" {
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

	var dbConn *db.DB
	if strings.TrimSpace(cfg.DB.DSN) != "" {
		dbConn, err = db.Open(cfg.DB)
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
	} else {
		logger.Warn("no db dsn configured, running without persistence")
	}

	admin := identity.Parse(cfg.Vault.Admin)
	roleMgr, err := roles.NewManager(admin)
	if err != nil {
		logger.Fatal("role manager init failed", zap.Error(err))
	}
	if n, err := roleMgr.AddKeepers(admin, parseIdentities(cfg.Vault.Keepers)); err != nil {
		logger.Fatal("seed keepers failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("keepers seeded", zap.Int("count", n))
	}
	if n, err := roleMgr.AddPausers(admin, parseIdentities(cfg.Vault.Pausers)); err != nil {
		logger.Fatal("seed pausers failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("pausers seeded", zap.Int("count", n))
	}

	reg := registry.New(roleMgr)

	ledger := token.NewLedger()
	self := identity.Parse(cfg.Vault.SelfID)
	if err := ledger.SetVaultContract(self); err != nil {
		logger.Fatal("share token binding failed", zap.Error(err))
	}

	feeMode, ok := vault.ParseFeeMode(cfg.Vault.FeeMode)
	if !ok {
		logger.Fatal("unknown fee mode", zap.String("fee_mode", cfg.Vault.FeeMode))
	}
	vaultCfg := vault.Config{
		Self:           self,
		FeeMode:        feeMode,
		DepositFeeBps:  cfg.Vault.DepositFeeBps,
		WithdrawFeeBps: cfg.Vault.WithdrawFeeBps,
	}
	if cfg.Vault.Cap > 0 {
		capVal := cfg.Vault.Cap
		vaultCfg.Cap = &capVal
	}
	core, err := vault.New(vaultCfg, roleMgr, reg, ledger)
	if err != nil {
		logger.Fatal("vault init failed", zap.Error(err))
	}

	var store *gormrepository.Store
	if dbConn != nil {
		store = gormrepository.New(dbConn.Gorm)
	}
	hub := stream.NewHub(logger)

	svc := &service.VaultService{
		Roles:    roleMgr,
		Registry: reg,
		Vault:    core,
		Shares:   ledger,
		Repo:     store,
		Stream:   hub,
		Logger:   logger,
	}

	if store != nil {
		if _, err := svc.RestoreStrategies(context.Background()); err != nil {
			logger.Warn("strategy restore failed", zap.Error(err))
		}
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{Roles: roleMgr}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(engine)
	(&handler.VaultHandler{Service: svc}).Register(engine)
	(&handler.RolesHandler{Service: svc}).Register(engine)
	(&handler.StrategyHandler{Service: svc}).Register(engine)
	(&handler.StreamHandler{Hub: hub}).Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled && store != nil {
		_, err = cronRunner.Add(cfg.Cron.RateSnapshot, func(ctx context.Context) {
			if err := svc.SnapshotRate(ctx); err != nil {
				logger.Warn("rate snapshot failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register rate snapshot failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.JournalPrune, func(ctx context.Context) {
			n, err := svc.PruneJournal(ctx, cfg.Cron.JournalRetention)
			if err != nil {
				logger.Warn("journal prune failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("journal pruned", zap.Int64("rows", n))
			}
		})
		if err != nil {
			logger.Warn("cron register journal prune failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
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

func parseIdentities(raw []string) []identity.Identity {
	out := make([]identity.Identity, 0, len(raw))
	for _, item := range raw {
		id := identity.Parse(item)
		if id.IsZero() {
			continue
		}
		out = append(out, id)
	}
	return out
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Caller-ID")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
