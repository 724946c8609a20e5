package legacy

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/topolina/flipbook-orders/internal/catalog"
	"github.com/topolina/flipbook-orders/internal/orders"
	"github.com/topolina/flipbook-orders/internal/postgres"
)

type Report struct {
	Products      int
	Patterns      int
	Links         int
	Orders        int
	SkippedOrders int
}

// Importer copies the legacy store into PostgreSQL in a single transaction. Orders
// whose id already exists are left untouched, so the import can be re-run.
type Importer struct {
	Source *Source
	Target postgres.DB
	Orders *orders.Repo
}

func (im *Importer) Run(ctx context.Context) (Report, error) {
	var rep Report

	products, err := im.Source.Products(ctx)
	if err != nil {
		return rep, err
	}
	recs, err := im.Source.Orders(ctx)
	if err != nil {
		return rep, err
	}

	tx, err := im.Target.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return rep, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := catalog.UpsertProductsTx(ctx, tx, products); err != nil {
		return rep, err
	}
	rep.Products = len(products)

	ids := make([]string, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, productID := range ids {
		p := products[productID]
		rep.Patterns += len(p.Patterns)
		for _, pt := range p.Patterns {
			if pt.FabricID == "" {
				continue
			}
			// copied as is; a link to a fabric that was never created stays dangling
			if _, err := tx.Exec(ctx, `UPDATE patterns SET fabric_id=$3 WHERE product_id=$1 AND id=$2`,
				productID, pt.ID, pt.FabricID); err != nil {
				return rep, fmt.Errorf("link %s/%s: %w", productID, pt.ID, err)
			}
			rep.Links++
		}
	}

	for _, rec := range recs {
		ok, err := im.Orders.Insert(ctx, tx, rec)
		if err != nil {
			return rep, fmt.Errorf("order %s: %w", rec.ID, err)
		}
		if !ok {
			log.Printf("legacy: order %s already imported, skipping", rec.ID)
			rep.SkippedOrders++
			continue
		}
		rep.Orders++
	}

	if err := tx.Commit(ctx); err != nil {
		return rep, err
	}
	return rep, nil
}
