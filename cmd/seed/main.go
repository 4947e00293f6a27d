// seed loads the default users and beverages (or a YAML file) into an empty
// database.
//
// Usage:
//
//	go run ./cmd/seed [-file seed.yaml]
package main

import (
	"context"
	"flag"

	"beverage-backend/internal/config"
	"beverage-backend/internal/database"
	"beverage-backend/internal/logging"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/seed"

	"github.com/sirupsen/logrus"
)

func main() {
	file := flag.String("file", "", "YAML seed file; the built-in data set when empty")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	path := *file
	if path == "" {
		path = cfg.SeedFile
	}
	data, err := seed.Load(path)
	if err != nil {
		log.WithError(err).Fatal("load seed data")
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer database.Close(db)

	seeded, err := seed.Run(context.Background(), repository.NewStore(db), data, log)
	if err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	if seeded && path == "" {
		log.Info("default credentials: admin/admin123, officeBoy/office123, ahmed/ahmed123, sara/sara123")
	}
}
