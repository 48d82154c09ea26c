package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AmentiAI/solmaker-sub001/common/logger"
	"github.com/AmentiAI/solmaker-sub001/common/middleware"
	aws_pkg "github.com/AmentiAI/solmaker-sub001/pkg/aws"
	"github.com/AmentiAI/solmaker-sub001/pkg/chain"
	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/controllers"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/database"
	mintkafka "github.com/AmentiAI/solmaker-sub001/services/launchpad-api/kafka"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/notify"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/repository"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/routes"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize("development").Fatal("Config load failed", zap.Error(err))
	}

	log := logger.Initialize(cfg.Env)
	defer log.Sync() //nolint:errcheck

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	clk := clock.NewSystem()

	// --- Catalog ---
	var catalog repository.CatalogRepository
	switch cfg.CatalogStore {
	case "postgres":
		db, err := database.Connect(cfg.Postgres)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		gormRepo := repository.NewGormCatalogRepository(db)
		if err := gormRepo.AutoMigrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		if cfg.SeedCollectionID != "" {
			if _, err := gormRepo.GetCollection(ctx, cfg.SeedCollectionID); errors.Is(err, repository.ErrNotFound) {
				if err := demoCatalog(cfg, clk).Insert(ctx, db); err != nil {
					log.Fatal("Failed to seed collection", zap.Error(err))
				}
				log.Info("Seeded demo collection", zap.String("collection_id", cfg.SeedCollectionID))
			}
		}
		catalog = gormRepo
	default:
		memRepo := repository.NewMemoryCatalogRepository()
		if cfg.SeedCollectionID != "" {
			demoCatalog(cfg, clk).Load(memRepo)
			log.Info("Seeded demo collection", zap.String("collection_id", cfg.SeedCollectionID))
		}
		catalog = memRepo
	}

	// --- Lock table ---
	var locks repository.LockStore
	switch cfg.LockStore {
	case "redis":
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer client.Close() //nolint:errcheck
		locks = repository.NewRedisLockStore(client, clk)
	default:
		locks = repository.NewMemoryLockStore(clk)
	}

	// --- Chain ---
	var (
		blockhash chain.BlockhashSource    = chain.StaticBlockhash{}
		checker   services.SignatureChecker = chain.OfflineChecker{}
	)
	if cfg.RPCURL != "" {
		rpcClient := chain.NewRPC(cfg.RPCURL)
		blockhash = rpcClient
		checker = chain.NewSignatureChecker(rpcClient)
	} else {
		log.Warn("SOLANA_RPC_URL not set, using offline blockhash and signature checks")
	}
	builder, err := chain.NewTransferBuilder(blockhash, cfg.TreasuryAddress)
	if err != nil {
		log.Fatal("Invalid treasury address", zap.Error(err))
	}

	opts := []services.Option{
		services.WithClock(clk),
		services.WithLockTTL(cfg.LockTTL),
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := mintkafka.NewMintEventProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer producer.Close()
		opts = append(opts, services.WithPublisher(producer))
	}

	// --- AWS ---
	var metrics *aws_pkg.MetricsClient
	if cfg.MintSNSTopicARN != "" || cfg.CloudWatchEnabled {
		awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)
		if awsErr != nil {
			log.Warn("AWS config unavailable, SNS and CloudWatch disabled", zap.Error(awsErr))
		} else {
			if cfg.MintSNSTopicARN != "" {
				snsClient := aws_pkg.NewSNSClient(awsCfg, log)
				opts = append(opts, services.WithPublisher(notify.NewMintSNSPublisher(snsClient, cfg.MintSNSTopicARN, log)))
			}
			if cfg.CloudWatchEnabled {
				metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace)
				opts = append(opts, services.WithMetrics(metrics))
			}
		}
	}

	launchpadService := services.NewLaunchpadService(catalog, locks, builder, checker, log, opts...)
	launchpadController := controllers.NewLaunchpadController(launchpadService)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
		defer limiter.Close()
	}

	routeOpts := routes.Options{
		AllowOrigins:   cfg.AllowOrigins,
		Limiter:        limiter,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
	}
	if metrics != nil {
		routeOpts.Metrics = metrics
	}
	r := routes.NewRouter(launchpadController, routeOpts)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Launchpad API starting",
			zap.String("port", cfg.Port),
			zap.String("catalog_store", cfg.CatalogStore),
			zap.String("lock_store", cfg.LockStore),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Launchpad API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Launchpad API stopped gracefully")
}

func demoCatalog(cfg *Config, clk clock.Clock) repository.DemoCatalog {
	return repository.NewDemoCatalog(
		cfg.SeedCollectionID,
		cfg.SeedSupply,
		cfg.SeedMintType,
		cfg.SeedPriceLamports,
		cfg.SeedMaxPerWallet,
		clk.Now().Add(-time.Minute),
	)
}
