package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-classroom/internal/config"
	"github.com/mind-engage/mindengage-classroom/internal/db"
	"github.com/mind-engage/mindengage-classroom/internal/migrate"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	cfg := config.FromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	rep, err := migrate.Run(ctx, dbh, *dryRun)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	ids := make([]string, 0, len(rep.Skipped))
	for id := range rep.Skipped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		log.Printf("skipped lesson %s: %s", id, rep.Skipped[id])
	}
	log.Printf("scanned=%d migrated=%d skipped=%d dry_run=%v", rep.Scanned, rep.Migrated, len(rep.Skipped), *dryRun)
}
