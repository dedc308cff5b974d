package main

import (
	"database/sql"
	"errors"
	"flag"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/clinicore/clinic-booking/internal/config"
	"github.com/clinicore/clinic-booking/migrations"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	pool, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer pool.Close()

	driver, err := postgres.WithInstance(pool, &postgres.Config{})
	if err != nil {
		log.Fatalf("migration driver: %v", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatalf("migration source: %v", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		log.Fatalf("migrate init: %v", err)
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "force":
		v, convErr := strconv.Atoi(flag.Arg(1))
		if convErr != nil {
			log.Fatalf("force requires a version number: %v", convErr)
		}
		err = m.Force(v)
	default:
		log.Fatalf("unknown command %q (want up, down or force)", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("no migrations to apply")
		return
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalf("read version: %v", err)
	}
	log.Printf("migrations applied, version=%d dirty=%v", version, dirty)
}
