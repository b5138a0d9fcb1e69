package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/cassiomorais/billing/internal/infrastructure/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		direction string
		steps     int
		dbURL     string
		path      string
	)

	flag.StringVar(&direction, "direction", "up", "up, down or version")
	flag.IntVar(&steps, "steps", 0, "Apply at most this many migrations (0 applies all)")
	flag.StringVar(&dbURL, "db", "", "Database URL (defaults to DATABASE_URL, then the billing config)")
	flag.StringVar(&path, "path", "internal/infrastructure/postgres/migrations", "Path to migration files")
	flag.Parse()

	if err := run(direction, steps, resolveURL(dbURL), path); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", direction, err)
		os.Exit(1)
	}
}

func resolveURL(flagURL string) string {
	if flagURL != "" {
		return flagURL
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg.Database.DatabaseURL()
}

func run(direction string, steps int, dbURL, path string) error {
	m, err := migrate.New("file://"+path, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		fmt.Printf("Schema version %d (dirty=%t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown direction %q (use up, down or version)", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	fmt.Printf("Migrations %s applied\n", direction)
	return nil
}
