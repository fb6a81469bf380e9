package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/api/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/api/config"
	"github.com/dev-mohitbeniwal/gatekeeper/api/controller"
	"github.com/dev-mohitbeniwal/gatekeeper/api/dao"
	"github.com/dev-mohitbeniwal/gatekeeper/api/db"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/router"
	"github.com/dev-mohitbeniwal/gatekeeper/api/service"
	"github.com/dev-mohitbeniwal/gatekeeper/api/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	logger.InitLogger(os.Getenv("LOG_DIR"))
	defer logger.Sync()

	stores, err := initStores(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer func() {
		if err := db.CloseAll(); err != nil {
			logger.Error("Failed to close backends", zap.Error(err))
		}
	}()

	// Initialize Redis
	if cfg.Redis.Enabled {
		if err := db.InitRedis(cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, continuing without rate limiting and tenant cache", zap.Error(err))
			db.CloseRedis()
			db.RedisClient = nil
		} else {
			stores.Tenant = dao.NewCachedTenantStore(stores.Tenant, db.RedisClient, cfg.Redis.TenantCacheTTL)
		}
	}

	auditRepository, err := initAuditRepository(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository, cfg.Audit.Denylist)

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()
	policyCache, err := util.NewPolicyCache(cfg.Policy.CacheTTL)
	if err != nil {
		logger.Fatal("Failed to initialize policy cache", zap.Error(err))
	}
	defer policyCache.Close()

	services, err := service.InitializeServices(stores, auditService, validationUtil, policyCache, cfg.Tenant.Mode)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	if cfg.Policy.BootstrapFile != "" {
		defaults, err := service.LoadBootstrapPolicies(cfg.Policy.BootstrapFile, validationUtil)
		if err != nil {
			logger.Fatal("Failed to load bootstrap policies", zap.Error(err), zap.String("file", cfg.Policy.BootstrapFile))
		}
		for _, policy := range defaults {
			services.Evaluator.AddPolicy(policy)
		}
		logger.Info("Default policies registered", zap.Int("count", len(defaults)))
	}

	// Initialize controllers
	controllers := controller.InitializeControllers(services)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(cfg, controllers, services, db.RedisClient)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func initStores(cfg *config.Configuration) (service.Stores, error) {
	timeout := cfg.Store.QueryTimeout

	if cfg.Store.Driver == config.StoreDriverNeo4j {
		if err := db.InitNeo4j(cfg.Neo4j); err != nil {
			return service.Stores{}, err
		}
		policyDAO, err := dao.NewNeo4jPolicyDAO(db.Neo4jDriver, timeout)
		if err != nil {
			return service.Stores{}, err
		}
		tenantDAO, err := dao.NewNeo4jTenantDAO(db.Neo4jDriver, timeout)
		if err != nil {
			return service.Stores{}, err
		}
		return service.Stores{Policy: policyDAO, Tenant: tenantDAO}, nil
	}

	if err := db.InitSQL(cfg.Store); err != nil {
		return service.Stores{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dao.Migrate(ctx, db.SQLDB, cfg.Store.Driver); err != nil {
		return service.Stores{}, err
	}
	return service.Stores{
		Policy: dao.NewSQLPolicyDAO(db.SQLDB, timeout),
		Tenant: dao.NewSQLTenantDAO(db.SQLDB, timeout),
	}, nil
}

func initAuditRepository(cfg *config.Configuration) (audit.Repository, error) {
	if cfg.Audit.Sink == config.AuditSinkElasticsearch {
		repo, err := audit.NewElasticsearchRepository(cfg.Elasticsearch.URL, cfg.Elasticsearch.Index)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	return audit.NewSQLRepository(db.SQLDB), nil
}
