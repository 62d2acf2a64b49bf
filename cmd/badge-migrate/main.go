// badge-migrate rebuilds the badging schema from the bun models and
// optionally seeds a demo event. Intended for local development; the
// service itself applies versioned migrations from migrations/ on boot.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-badging/internal/config"
	"ms-badging/internal/models"
)

func main() {
	drop := flag.Bool("drop", false, "drop all tables before creating")
	seed := flag.Bool("seed", false, "insert demo event data")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()

	dsn := "postgres://" + cfg.Database.Username + ":" + cfg.Database.Password +
		"@" + cfg.Database.Host + ":" + cfg.Database.Port + "/" + cfg.Database.Database +
		"?sslmode=disable"
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	if *drop {
		log.Println("Dropping tables...")
		dropTables(ctx, db)
	}

	log.Println("Creating tables...")
	createTables(ctx, db)

	if *seed {
		log.Println("Seeding demo data...")
		seedData(ctx, db)
	}

	log.Println("✅ Done.")
}

func dropTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.Lead)(nil),
		(*models.CheckInRecord)(nil),
		(*models.BadgeAnalytics)(nil),
		(*models.Badge)(nil),
		(*models.User)(nil),
		(*models.Event)(nil),
	}
	for _, m := range tables {
		_, _ = db.NewDropTable().Model(m).IfExists().Cascade().Exec(ctx)
	}
}

func createTables(ctx context.Context, db *bun.DB) {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Event)(nil),
		(*models.Badge)(nil),
		(*models.BadgeAnalytics)(nil),
		(*models.CheckInRecord)(nil),
		(*models.Lead)(nil),
	}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("❌ Failed to create table for %T: %v", m, err)
		}
	}
}

func seedData(ctx context.Context, db *bun.DB) {
	now := time.Now()

	event := models.Event{
		ID:        "expo2026",
		Name:      "Trade Expo 2026",
		StartDate: now.AddDate(0, 1, 0),
		EndDate:   now.AddDate(0, 1, 3),
		CreatedAt: now,
	}
	_, _ = db.NewInsert().Model(&event).Exec(ctx)

	users := []models.User{
		{
			ID:        "user001",
			Email:     "alice@example.com",
			FullName:  "Alice Wonderland",
			Company:   "Acme Corp",
			Position:  "Head of Partnerships",
			Category:  models.CategoryExhibitor,
			CreatedAt: now,
		},
		{
			ID:        "user002",
			Email:     "bob@example.com",
			FullName:  "Bob Builder",
			Company:   "BuildIt Ltd",
			Position:  "Site Manager",
			Category:  models.CategoryVisitor,
			CreatedAt: now,
		},
	}
	_, _ = db.NewInsert().Model(&users).Exec(ctx)
}
