// Package main is the deploy-time migration runner. It applies the embedded
// goose migrations to the database named by DATABASE_URL and exits. Schema is
// never created or altered from inside a request; this command is the one
// place migrations run.
//
// Usage:
//
//	migrate [up|status]
//
// With no argument it runs "up".
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/NATPAC-Sanchara/trips/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		slog.Error("DATABASE_URL not set")
		os.Exit(1)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		slog.Error("create goose provider", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	switch cmd {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			slog.Error("migrate up", "error", err)
			os.Exit(1)
		}
		for _, r := range results {
			slog.Info("applied migration", "version", r.Source.Version, "path", r.Source.Path)
		}
		slog.Info("migrations up to date", "applied", len(results))
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			slog.Error("migration status", "error", err)
			os.Exit(1)
		}
		for _, s := range statuses {
			slog.Info("migration", "version", s.Source.Version, "path", s.Source.Path, "state", s.State)
		}
	default:
		slog.Error("unknown command", "command", cmd)
		os.Exit(1)
	}
}
