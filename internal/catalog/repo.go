package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/topolina/flipbook-orders/internal/inventory"
	"github.com/topolina/flipbook-orders/internal/postgres"
)

type Repo struct{ DB postgres.DB }

// ListProducts returns the catalog with effective stock. A pattern linked to a fabric
// that no longer exists shows zero meters, matching what an order would get.
func (r *Repo) ListProducts(ctx context.Context) (Catalog, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, display_name,
		       COALESCE(consumption_entire::text, ''), COALESCE(consumption_outside::text, ''),
		       COALESCE(consumption_inside::text, ''),
		       cover_image, sketch_image, shop_image,
		       COALESCE(price_ex_works::text, ''), COALESCE(price_landed::text, ''),
		       COALESCE(price_retail::text, '')
		FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := Catalog{}
	for rows.Next() {
		var (
			id, entire, outside, inside, exWorks, landed, retail string
			p                                                    Product
		)
		if err := rows.Scan(&id, &p.DisplayName, &entire, &outside, &inside,
			&p.CoverImage, &p.SketchImage, &p.ShopImage, &exWorks, &landed, &retail); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			raw string
			dst **decimal.Decimal
		}{
			{entire, &p.Consumption.Entire}, {outside, &p.Consumption.Outside}, {inside, &p.Consumption.Inside},
			{exWorks, &p.PriceExWorks}, {landed, &p.PriceLanded}, {retail, &p.PriceRetail},
		} {
			if *f.dst, err = nullable(f.raw); err != nil {
				return nil, fmt.Errorf("product %s: %w", id, err)
			}
		}
		p.Patterns = []Pattern{}
		out[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prow, err := r.DB.Query(ctx, `
		SELECT p.product_id, p.id, p.name, p.image, COALESCE(p.fabric_id, ''), p.stock_type,
		       (CASE WHEN p.fabric_id IS NULL THEN p.available_meters
		             ELSE COALESCE(f.available_meters, 0) END)::text,
		       p.available_quantity
		FROM patterns p LEFT JOIN fabrics f ON f.id = p.fabric_id
		ORDER BY p.product_id, p.position, p.id`)
	if err != nil {
		return nil, err
	}
	defer prow.Close()

	for prow.Next() {
		var (
			productID, st, meters string
			pt                    Pattern
		)
		if err := prow.Scan(&productID, &pt.ID, &pt.Name, &pt.Image, &pt.FabricID, &st, &meters,
			&pt.AvailableQuantity); err != nil {
			return nil, err
		}
		pt.StockType = inventory.ParseStockType(st)
		if pt.AvailableMeters, err = decimal.NewFromString(meters); err != nil {
			return nil, fmt.Errorf("pattern %s/%s: %w", productID, pt.ID, err)
		}
		p, ok := out[productID]
		if !ok {
			continue
		}
		p.Patterns = append(p.Patterns, pt)
		out[productID] = p
	}
	return out, prow.Err()
}

// UpsertProducts saves the given products in one transaction. Patterns missing from a
// product are removed. Fabric links are never changed here, and a linked pattern keeps
// its stored meters since its stock lives on the fabric.
func (r *Repo) UpsertProducts(ctx context.Context, c Catalog) error {
	if err := c.validate(); err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := UpsertProductsTx(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpsertProductsTx is UpsertProducts inside the caller's transaction.
func UpsertProductsTx(ctx context.Context, tx pgx.Tx, c Catalog) error {
	if err := c.validate(); err != nil {
		return err
	}
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := upsertProduct(ctx, tx, id, c[id]); err != nil {
			return fmt.Errorf("product %s: %w", id, err)
		}
	}
	return nil
}

func upsertProduct(ctx context.Context, tx pgx.Tx, id string, p Product) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO products (id, display_name, consumption_entire, consumption_outside, consumption_inside,
		                      cover_image, sketch_image, shop_image, price_ex_works, price_landed, price_retail)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			consumption_entire = EXCLUDED.consumption_entire,
			consumption_outside = EXCLUDED.consumption_outside,
			consumption_inside = EXCLUDED.consumption_inside,
			cover_image = EXCLUDED.cover_image,
			sketch_image = EXCLUDED.sketch_image,
			shop_image = EXCLUDED.shop_image,
			price_ex_works = EXCLUDED.price_ex_works,
			price_landed = EXCLUDED.price_landed,
			price_retail = EXCLUDED.price_retail`,
		id, p.DisplayName, numArg(p.Consumption.Entire), numArg(p.Consumption.Outside), numArg(p.Consumption.Inside),
		p.CoverImage, p.SketchImage, p.ShopImage, numArg(p.PriceExWorks), numArg(p.PriceLanded), numArg(p.PriceRetail),
	); err != nil {
		return err
	}

	keep := make([]string, 0, len(p.Patterns))
	for i, pt := range p.Patterns {
		if _, err := tx.Exec(ctx, `
			INSERT INTO patterns (product_id, id, name, image, stock_type, available_meters, available_quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
			ON CONFLICT (product_id, id) DO UPDATE SET
				name = EXCLUDED.name,
				image = EXCLUDED.image,
				stock_type = EXCLUDED.stock_type,
				available_quantity = EXCLUDED.available_quantity,
				position = EXCLUDED.position,
				available_meters = CASE WHEN patterns.fabric_id IS NULL
				                        THEN EXCLUDED.available_meters ELSE patterns.available_meters END`,
			id, pt.ID, pt.Name, pt.Image, string(inventory.ParseStockType(string(pt.StockType))),
			pt.AvailableMeters.String(), pt.AvailableQuantity, i,
		); err != nil {
			return fmt.Errorf("pattern %s: %w", pt.ID, err)
		}
		keep = append(keep, pt.ID)
	}
	_, err := tx.Exec(ctx, `DELETE FROM patterns WHERE product_id=$1 AND NOT (id = ANY($2))`, id, keep)
	return err
}

// HasProducts reports whether the catalog holds at least one product.
func (r *Repo) HasProducts(ctx context.Context) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products)`).Scan(&ok)
	return ok, err
}

func (r *Repo) ListFabrics(ctx context.Context) ([]Fabric, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, available_meters::text FROM fabrics ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Fabric{}
	index := map[string]int{}
	for rows.Next() {
		var (
			f      Fabric
			meters string
		)
		if err := rows.Scan(&f.ID, &f.Name, &meters); err != nil {
			return nil, err
		}
		if f.AvailableMeters, err = decimal.NewFromString(meters); err != nil {
			return nil, fmt.Errorf("fabric %s: %w", f.ID, err)
		}
		f.Patterns = []LinkedPattern{}
		index[f.ID] = len(out)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := r.DB.Query(ctx, `
		SELECT fabric_id, product_id, id, name FROM patterns
		WHERE fabric_id IS NOT NULL ORDER BY product_id, position, id`)
	if err != nil {
		return nil, err
	}
	defer links.Close()
	for links.Next() {
		var (
			fabricID string
			lp       LinkedPattern
		)
		if err := links.Scan(&fabricID, &lp.ProductID, &lp.PatternID, &lp.Name); err != nil {
			return nil, err
		}
		if i, ok := index[fabricID]; ok {
			out[i].Patterns = append(out[i].Patterns, lp)
		}
	}
	return out, links.Err()
}

func (r *Repo) CreateFabric(ctx context.Context, name string, meters decimal.Decimal) (Fabric, error) {
	if err := validateFabric(name, meters); err != nil {
		return Fabric{}, err
	}
	f := Fabric{ID: uuid.NewString(), Name: name, AvailableMeters: meters, Patterns: []LinkedPattern{}}
	if _, err := r.DB.Exec(ctx, `INSERT INTO fabrics (id, name, available_meters) VALUES ($1, $2, $3::numeric)`,
		f.ID, f.Name, meters.String()); err != nil {
		return Fabric{}, err
	}
	return f, nil
}

// UpdateFabric sets the name and the stock level. It is an absolute write, so an
// order committed between the admin's read and this call is overwritten.
func (r *Repo) UpdateFabric(ctx context.Context, id, name string, meters decimal.Decimal) error {
	if err := validateFabric(name, meters); err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE fabrics SET name=$2, available_meters=$3::numeric, updated_at=now() WHERE id=$1`,
		id, name, meters.String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFabric unlinks every pattern from the fabric and removes it, atomically.
func (r *Repo) DeleteFabric(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE patterns SET fabric_id = NULL WHERE fabric_id = $1`, id); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM fabrics WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// LinkPattern points a pattern at a fabric. Both must exist.
func (r *Repo) LinkPattern(ctx context.Context, productID, patternID, fabricID string) error {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fabrics WHERE id=$1)`, fabricID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("fabric %s: %w", fabricID, ErrNotFound)
	}
	return r.setFabric(ctx, productID, patternID, &fabricID)
}

// UnlinkPattern clears the link. The pattern's own meters come back into use as they
// were last stored.
func (r *Repo) UnlinkPattern(ctx context.Context, productID, patternID string) error {
	return r.setFabric(ctx, productID, patternID, nil)
}

func (r *Repo) setFabric(ctx context.Context, productID, patternID string, fabricID *string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE patterns SET fabric_id=$3 WHERE product_id=$1 AND id=$2`,
		productID, patternID, fabricID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("pattern %s/%s: %w", productID, patternID, ErrNotFound)
	}
	return nil
}

func nullable(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func numArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
