// Command migrate prepares the PostgreSQL schema and optionally imports the legacy
// MySQL store or seeds the default catalog.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/topolina/flipbook-orders/internal/catalog"
	"github.com/topolina/flipbook-orders/internal/config"
	"github.com/topolina/flipbook-orders/internal/legacy"
	"github.com/topolina/flipbook-orders/internal/orders"
	"github.com/topolina/flipbook-orders/internal/postgres"
)

func main() {
	importLegacy := flag.Bool("import", false, "import products and orders from LEGACY_MYSQL_DSN")
	productsTable := flag.String("products-table", "products", "legacy JSON products table (products_old after the old in-place migration)")
	seed := flag.Bool("seed", false, "insert the default catalog when no products exist")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	log.Println("schema ready")

	if *importLegacy {
		src, err := legacy.Open(ctx, cfg.LegacyMySQLDSN)
		if err != nil {
			log.Fatalf("legacy connect: %v", err)
		}
		defer src.Close()

		im := &legacy.Importer{
			Source: &legacy.Source{DB: src, ProductsTable: *productsTable},
			Target: db,
			Orders: &orders.Repo{DB: db},
		}
		rep, err := im.Run(ctx)
		if err != nil {
			log.Fatalf("legacy import: %v", err)
		}
		log.Printf("legacy import done: %d products, %d patterns, %d fabric links, %d orders (%d already present)",
			rep.Products, rep.Patterns, rep.Links, rep.Orders, rep.SkippedOrders)
	}

	if *seed {
		svc := &catalog.Service{Repo: &catalog.Repo{DB: db}}
		wrote, err := svc.Seed(ctx, catalog.DefaultCatalog())
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if wrote {
			log.Println("default catalog seeded")
		} else {
			log.Println("catalog not empty, seed skipped")
		}
	}
}
