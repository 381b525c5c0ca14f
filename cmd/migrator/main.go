package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/technosupport/vms-analytics/internal/config"
	"github.com/technosupport/vms-analytics/internal/logging"
)

func main() {
	upCmd := flag.Bool("up", false, "Run all up migrations")
	downCmd := flag.Bool("down", false, "Rollback all migrations")
	stepsCmd := flag.Int("steps", 0, "Run +/- steps")
	configPath := flag.String("config", "", "path to the YAML config")
	source := flag.String("source", "file://db/migrations", "migration source URL")
	flag.Parse()

	log := logging.New(os.Getenv("LOG_LEVEL"), "console")

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	db, err := sql.Open("postgres", cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrate driver")
	}

	m, err := migrate.NewWithDatabaseInstance(*source, "postgres", driver)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize migrate")
	}

	start := time.Now()
	switch {
	case *upCmd:
		log.Info().Msg("running up migrations")
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("migration up failed")
		}
	case *downCmd:
		log.Info().Msg("running down migrations")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("migration down failed")
		}
	case *stepsCmd != 0:
		log.Info().Int("steps", *stepsCmd).Msg("running migration steps")
		if err := m.Steps(*stepsCmd); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("migration steps failed")
		}
	default:
		version, dirty, err := m.Version()
		if err != nil {
			log.Info().Msg("no version found (empty db?)")
		} else {
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current version")
		}
		log.Info().Msg("no command specified, use -up, -down or -steps")
	}
	log.Info().Dur("duration", time.Since(start)).Msg("done")
}
