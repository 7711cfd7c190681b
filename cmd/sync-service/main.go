package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaolamthuy/glt-backend/config"
	"github.com/gaolamthuy/glt-backend/kiotviet"
	"github.com/gaolamthuy/glt-backend/kvsync"
	"github.com/gaolamthuy/glt-backend/models"
	"github.com/gaolamthuy/glt-backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadKiotvietConfig()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if os.Getenv("SKIP_MIGRATIONS") == "" {
		models.MigrateTable()
	}

	store := kiotviet.NewDBTokenStore(db)
	client := kiotviet.NewClient(cfg, store, logger)
	orchestrator := kvsync.NewOrchestrator(
		kvsync.NewFetcher(client),
		kvsync.DBSinkFactory(db),
		db,
		logger,
	)
	api := &kvsync.API{
		Orchestrator: orchestrator,
		Tokens:       client.Tokens(),
		DB:           db,
		Logger:       logger,
		Earliest:     cfg.EarliestDate,
	}

	scheduler := kvsync.StartScheduler(orchestrator, cfg.EarliestDate, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(correlationIdMiddleware())
	router.Use(cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := router.Group("/api", kvsync.APIKeyMiddleware())
	authed.POST("/sync/:entity", api.TriggerSyncHandler)
	authed.GET("/sync/runs", api.SyncRunsHandler)
	authed.GET("/sync/runs/:id", api.SyncRunDetailHandler)
	authed.GET("/token", api.TokenInspectHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", port).Info("sync service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cronCtx := scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("forced shutdown")
	}
	// Let an in-flight scheduled sweep seal its run row.
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}
	logger.Info("stopped")
}

// correlationIdMiddleware threads a request id through the context and
// echoes it back in the response for log correlation.
func correlationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Correlation-Id", correlationId)
		c.Next()
	}
}
