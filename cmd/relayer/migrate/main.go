package main

import (
	"flag"
	"log"

	"github.com/uptrace/bun/migrate"

	"github.com/via-network/bridge-relayer/pkg/config"
	"github.com/via-network/bridge-relayer/pkg/pgutil"
	mghelper "github.com/via-network/bridge-relayer/pkg/pgutil/migrations"
	storemigrations "github.com/via-network/bridge-relayer/pkg/store/migrations"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	db, err := pgutil.ConnectDB(cfg.Store.DSN)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Println("running migrations for relayer database...")

	migrator := migrate.NewMigrator(db, storemigrations.Migrations)
	if err := mghelper.RunMigrations(migrator, flag.Args()...); err != nil {
		mghelper.Exitf(err.Error())
	}
}
