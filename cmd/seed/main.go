package main

import (
	"context"
	"os"

	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/logger"
	"project-management-api/internal/seed"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", os.Getenv("PM_CONFIG"), "path to a YAML config file")
	dbPath := flag.String("db", "", "path to the SQLite database file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	log := logger.Setup(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.Database.Path, database.LogLevelFor(cfg.LogLevel))
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}

	if _, err := seed.Run(context.Background(), db, log); err != nil {
		log.WithError(err).Fatal("failed to seed demo data")
	}
	log.Info("login with admin/admin123, john_manager/manager123, alice_dev/dev123 or bob_dev/dev123")
}
