package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-events/internal/config"
	"ms-events/internal/database/migrations"
)

func main() {
	var (
		dir  = flag.String("dir", "./migrations", "directory containing migration files")
		down = flag.Bool("down", false, "roll back all migrations")
		to   = flag.Uint("to", 0, "migrate to a specific version (0 means all the way up)")
		seed = flag.Bool("seed", false, "also run seed data migrations")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}

	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: *dir,
		AutoMigrate:   true,
		SeedData:      *seed,
	})
	defer runner.Close()

	switch {
	case *down:
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("✅ Rolled back all migrations")
	case *to > 0:
		if err := runner.MigrateTo(*to); err != nil {
			log.Fatalf("Migration to version %d failed: %v", *to, err)
		}
		fmt.Printf("✅ Migrated to version %d\n", *to)
	default:
		if err := runner.RunMigrations(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("✅ Migrations applied")
	}
}
