package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"graindesk/internal/cache"
	"graindesk/internal/client/feed"
	"graindesk/internal/config"
	cronrunner "graindesk/internal/cron"
	"graindesk/internal/db"
	"graindesk/internal/handler"
	"graindesk/internal/logger"
	"graindesk/internal/metrics"
	"graindesk/internal/notify"
	gormrepository "graindesk/internal/repository/gorm"
	"graindesk/internal/service"

	_ "graindesk/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("GD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("GD_ENV_ONLY"); envOnlyRaw != "" {
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
	defer dbConn.Close()

	if err := dbConn.SetTimezone(cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := dbConn.AutoMigrate(); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var prices service.PriceSource = service.RepoPrices{Repo: store}
	var priceWriter service.PriceWriter = service.RepoPriceWriter{Repo: store}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		priceCache := cache.NewPriceCache(store, rdb, cfg.Redis.TTL)
		prices = priceCache
		priceWriter = priceCache
		logger.Info("redis price cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	hub := notify.NewHub(store, logger)

	positions := &service.PositionService{Repo: store, Prices: prices, Logger: logger}
	coverages := &service.CoverageService{Repo: store, Logger: logger}
	rolls := &service.RollService{Repo: store, Logger: logger}
	resales := &service.ResaleService{
		Repo:             store,
		Prices:           prices,
		Hub:              hub,
		Logger:           logger,
		ValidationWindow: cfg.Resale.ValidationWindow,
	}
	settlements := &service.SettlementService{
		Repo:          store,
		Hub:           hub,
		Logger:        logger,
		CommissionPct: decimal.NewFromFloat(cfg.Resale.CommissionPct),
	}
	pnl := &service.PnLService{Repo: store, Prices: prices, Positions: positions, Logger: logger}

	feedClient := feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout)
	priceSync := &service.PriceSyncService{
		Repo:   store,
		Feed:   feedClient,
		Writer: priceWriter,
		Hub:    hub,
		Logger: logger,
		Source: cfg.Feed.Source,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	clientHandler := &handler.ClientHandler{Repo: store}
	clientHandler.Register(engine)
	vesselHandler := &handler.VesselHandler{Repo: store, Positions: positions, Coverages: coverages, Rolls: rolls}
	vesselHandler.Register(engine)
	saleHandler := &handler.SaleHandler{Repo: store, Positions: positions, Coverages: coverages, Rolls: rolls}
	saleHandler.Register(engine)
	coverageHandler := &handler.CoverageHandler{Repo: store, Coverages: coverages}
	coverageHandler.Register(engine)
	resaleHandler := &handler.ResaleHandler{Repo: store, Resales: resales}
	resaleHandler.Register(engine)
	bidHandler := &handler.BidHandler{Repo: store, Settlements: settlements}
	bidHandler.Register(engine)
	txnHandler := &handler.TransactionHandler{Repo: store}
	txnHandler.Register(engine)
	priceHandler := &handler.PriceHandler{Repo: store, Sync: priceSync}
	priceHandler.Register(engine)
	pnlHandler := &handler.PnLHandler{PnL: pnl}
	pnlHandler.Register(engine)
	notificationHandler := &handler.NotificationHandler{Repo: store}
	notificationHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add("price_sync", cfg.Cron.PriceSync, func(ctx context.Context) {
			if err := priceSync.SyncOnce(ctx); err != nil {
				logger.Warn("cron price sync failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register price sync failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.Feed.StreamURL != "" {
		stream := &service.PriceStreamService{
			Repo:   store,
			Writer: priceWriter,
			Hub:    hub,
			Logger: logger,
			Source: cfg.Feed.Source,
		}
		go func() {
			if err := stream.Run(ctx, cfg.Feed.StreamURL); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("price stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)
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

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
