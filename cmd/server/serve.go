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

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"site-deploy-service/internal/adapters/primary/http/handlers"
	"site-deploy-service/internal/adapters/primary/http/middleware"
	"site-deploy-service/internal/adapters/primary/http/session"
	"site-deploy-service/internal/adapters/secondary/filesystem"
	"site-deploy-service/internal/adapters/secondary/postgres"
	"site-deploy-service/internal/core/services"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	pool, err := openPool(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrateOnStart {
		if err := migrateUp(pool); err != nil {
			return err
		}
	}

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports)
	store := postgres.NewStore(pool)
	userRepo := postgres.NewUserRepository(pool)
	archives, err := filesystem.NewArchiveStore(cfg.Hosting.Root)
	if err != nil {
		return err
	}
	log.WithField("root", archives.Root()).Info("hosting root ready")

	// Core Services (Application Layer)
	deploymentSvc := services.NewDeploymentService(store)
	lifecycleSvc := services.NewLifecycleService(store, deploymentSvc, archives)
	authSvc := services.NewAuthService(userRepo)

	// Primary Adapter (HTTP Handlers)
	sessions := session.NewManager([]byte(cfg.Session.Secret), session.Options{
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	})
	h := handlers.New(deploymentSvc, lifecycleSvc, authSvc, sessions, handlers.Options{
		HostingScheme:  cfg.Hosting.Scheme,
		HostingDomain:  cfg.Hosting.Domain,
		UploadMaxBytes: cfg.Upload.MaxBytes,
	})

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	h.RegisterRoutes(router)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
