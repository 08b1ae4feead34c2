package main

import (
	"context"
	"os"
	"time"

	"meritboard/internal/auth"
	"meritboard/internal/config"
	"meritboard/internal/seed"
	"meritboard/internal/store"
)

// Seeds the configured Postgres database with the default admin and demo students.
func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := store.Migrate(ctx, pg.DB()); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	opts := seed.Options{
		AdminUsername:  cfg.SeedAdminUser,
		AdminPassword:  cfg.SeedAdminPass,
		SampleStudents: true,
	}
	if err := seed.Run(ctx, pg, auth.Hasher{Cost: cfg.BcryptCost}, opts, log); err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	log.Info("seeding complete")
}
