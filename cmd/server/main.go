package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/michraz/internal/authclient"
	"github.com/stwalsh4118/michraz/internal/config"
	"github.com/stwalsh4118/michraz/internal/database"
	"github.com/stwalsh4118/michraz/internal/handlers"
	"github.com/stwalsh4118/michraz/internal/locations"
	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/middleware"
	"github.com/stwalsh4118/michraz/internal/repository"
	"github.com/stwalsh4118/michraz/internal/services"
	"github.com/stwalsh4118/michraz/internal/signup"
)

const (
	shutdownTimeout      = 30 * time.Second
	flowSweepInterval    = time.Minute
	databaseSetupTimeout = 10 * time.Second
)

func main() {
	// Load configuration from .env and environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env, logger.WithLevel(cfg.Server.LogLevel))
	log.Info("Starting michraz API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	if err := handlers.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", err, nil)
	}

	// Settlement reference table
	table, err := loadLocations(cfg.Dataset)
	if err != nil {
		log.Fatal("Failed to load locations", err, map[string]interface{}{
			"file": cfg.Dataset.LocationsFile,
		})
	}
	log.Info("Locations loaded", map[string]interface{}{
		"settlements": table.Len(),
	})

	// Background work is bound to this context and stopped on shutdown
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	var background sync.WaitGroup

	// Optional database for newsletter signups
	var (
		db          *database.Database
		pinger      handlers.Pinger
		emailSignup repository.EmailSignupRepository
	)
	if cfg.Database.Enabled() {
		db, emailSignup = connectDatabase(bgCtx, cfg.Database, log)
		defer db.Close()
		pinger = db
	} else {
		log.Warn("No database configured; email signups will not be stored", nil)
	}

	// Auth platform client shared by the signup flow, the guard and email signups
	auth := authclient.Shared(cfg.Auth)

	// Services
	tenderService := services.NewTenderService(
		repository.NewTenderSource(cfg.Dataset.TendersSource, nil), table, log.WithComponent("tenders"))
	sheetService := services.NewSheetService(
		repository.NewSheetSource(cfg.Dataset.SheetsURL, nil), log.WithComponent("sheets"))
	store := signup.NewStore(auth, signup.Options{}, cfg.Signup.FlowTTL)
	signupService := services.NewSignupService(store, log.WithComponent("signup"))
	emailSignupService := services.NewEmailSignupService(emailSignup, auth, log.WithComponent("email_signup"))

	background.Add(2)
	go func() {
		defer background.Done()
		if err := tenderService.Warm(bgCtx); err != nil {
			log.Warn("Tender dataset not loaded at startup; will retry on first request", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
	go func() {
		defer background.Done()
		store.Run(bgCtx, flowSweepInterval)
	}()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(pinger, tenderService, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize handlers
	tenderHandler := handlers.NewTenderHandler(tenderService)
	sheetHandler := handlers.NewSheetHandler(sheetService)
	signupHandler := handlers.NewSignupHandler(signupService, cfg.Signup.CookieSecure)
	emailSignupHandler := handlers.NewEmailSignupHandler(emailSignupService)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/tenders", tenderHandler.ListTenders)
		v1.GET("/tenders/:id", tenderHandler.GetTender)
		v1.GET("/cities", tenderHandler.ListCities)
		v1.GET("/cities/geojson", tenderHandler.CityGeoJSON)
		v1.GET("/locations/:code", tenderHandler.GetLocation)

		flows := v1.Group("/signup/flows")
		{
			flows.POST("", signupHandler.Start)
			flows.GET("/:id", signupHandler.Get)
			flows.POST("/:id/submit", signupHandler.Submit)
			flows.PUT("/:id/code", signupHandler.SetCode)
			flows.POST("/:id/verify", signupHandler.Verify)
			flows.POST("/:id/resend", signupHandler.Resend)
			flows.POST("/:id/back", signupHandler.Back)
			flows.DELETE("/:id", signupHandler.Abandon)
		}

		v1.POST("/email-signups", emailSignupHandler.Subscribe)

		protected := v1.Group("", middleware.AuthGuard(auth))
		{
			protected.GET("/sheets", sheetHandler.ListSheets)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	// Closing the flow store cancels in-flight auth calls and cooldowns
	stopBackground()
	background.Wait()

	log.Info("Server exited", nil)
}

func loadLocations(cfg config.DatasetConfig) (*locations.Table, error) {
	if cfg.LocationsFile != "" {
		return locations.LoadFile(cfg.LocationsFile)
	}
	return locations.Default()
}

// connectDatabase opens the pool and prepares the email_signups table.
// Failure to connect is fatal once a database has been configured.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*database.Database, repository.EmailSignupRepository) {
	setupCtx, cancel := context.WithTimeout(ctx, databaseSetupTimeout)
	defer cancel()

	db, err := database.NewPostgresPool(setupCtx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
			"name": cfg.Name,
		})
	}

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Host,
		"port":     cfg.Port,
		"database": cfg.Name,
		"pool_min": cfg.PoolMin,
		"pool_max": cfg.PoolMax,
	})

	repo := repository.NewEmailSignupRepository(db)
	if err := repo.EnsureSchema(setupCtx); err != nil {
		log.Fatal("Failed to prepare email_signups table", err, nil)
	}

	fields := map[string]interface{}{
		"open_conns": db.Stats().TotalConns(),
	}
	if n, err := repo.Count(setupCtx); err == nil {
		fields["email_signups"] = n
	}
	log.Info("Email signup storage ready", fields)
	return db, repo
}
