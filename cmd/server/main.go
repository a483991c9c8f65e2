package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"project-management-api/internal/auth"
	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/handlers"
	"project-management-api/internal/logger"
	"project-management-api/internal/realtime"
	"project-management-api/internal/routes"
	"project-management-api/internal/stats"
	"project-management-api/internal/store"
	"project-management-api/internal/stories"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.StringP("config", "c", os.Getenv("PM_CONFIG"), "path to a YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "path to the SQLite database file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid config")
	}

	log := logger.Setup(cfg.Env, cfg.LogLevel)
	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database.Path, database.LogLevelFor(cfg.LogLevel))
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	log.WithField("path", cfg.Database.Path).Info("database connected and migrated")

	if err := handlers.RegisterValidators(); err != nil {
		log.WithError(err).Fatal("failed to register validators")
	}

	st := store.New(db)
	var gen stories.Generator
	if cfg.AI.APIKey != "" {
		gen = stories.NewClient(&http.Client{}, cfg.AI)
	} else {
		log.Warn("GROQ_API_KEY not set, story generation disabled")
	}

	tokens := auth.NewTokens(auth.TokenSettings{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	})
	storyService := stories.NewService(gen, st, stories.Options{
		Timeout:   cfg.AI.Timeout,
		DedupeTTL: cfg.AI.DedupeTTL,
	}, log)

	h := handlers.New(handlers.Deps{
		Store:   st,
		Tokens:  tokens,
		Stats:   stats.NewEngine(st),
		Stories: storyService,
		Hub:     realtime.NewHub(log),
		Log:     log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           routes.SetupRoutes(h, routes.Options{CORSOrigins: cfg.CORS.Origins, Log: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr, "env": cfg.Env, "version": handlers.Version}).Info("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("failed to shutdown server")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
