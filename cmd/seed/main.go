// Command seed fills a development database with demo clans and users.
package main

import (
	"flag"
	"log/slog"
	"os"

	"clanhub/internal/config"
	"clanhub/internal/database"
	"clanhub/internal/middleware"
	"clanhub/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numClans := flag.Int("clans", 8, "Number of clans to create")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 uses the clock)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fixturesOnly := flag.Bool("fixtures", false, "Only load the built-in fixtures")
	flag.Parse()

	log := middleware.Logger
	fail := func(msg string, err error) {
		log.Error(msg, slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fail("failed to load configuration", err)
	}
	if err := middleware.ConfigureLogger(cfg); err != nil {
		fail("failed to configure logging", err)
	}
	log = middleware.Logger
	if cfg.IsProduction() {
		log.Error("refusing to seed a production database")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		fail("failed to connect to database", err)
	}

	s := seed.NewSeeder(db, seed.Options{NumUsers: *numUsers, NumClans: *numClans, RandSeed: *randSeed})
	if *shouldClean && !*fixturesOnly {
		if err := s.ClearAll(); err != nil {
			fail("cleanup failed", err)
		}
	}

	if err := seed.LoadBuiltIn(db); err != nil {
		fail("fixture loading failed", err)
	}
	if *fixturesOnly {
		log.Info("built-in fixtures loaded")
		return
	}

	sum, err := s.SeedCommunity()
	if err != nil {
		fail("community seeding failed", err)
	}
	log.Info("seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("clans", sum.Clans),
		slog.Int("bans", sum.Bans),
		slog.Int("reports", sum.Reports))
}
