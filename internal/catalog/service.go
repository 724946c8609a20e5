package catalog

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Service fronts the repo with the listing cache. Every admin write invalidates it.
type Service struct {
	Repo  *Repo
	Cache *Cache
}

// ProductsJSON returns the encoded catalog listing, from cache when possible.
func (s *Service) ProductsJSON(ctx context.Context) ([]byte, error) {
	if b, ok := s.Cache.get(ctx); ok {
		return b, nil
	}
	c, err := s.Repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	s.Cache.put(ctx, b)
	return b, nil
}

func (s *Service) SaveProducts(ctx context.Context, c Catalog) error {
	if err := s.Repo.UpsertProducts(ctx, c); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx)
	return nil
}

func (s *Service) Fabrics(ctx context.Context) ([]Fabric, error) { return s.Repo.ListFabrics(ctx) }

func (s *Service) CreateFabric(ctx context.Context, name string, meters decimal.Decimal) (Fabric, error) {
	return s.Repo.CreateFabric(ctx, name, meters)
}

func (s *Service) UpdateFabric(ctx context.Context, id, name string, meters decimal.Decimal) error {
	if err := s.Repo.UpdateFabric(ctx, id, name, meters); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx)
	return nil
}

func (s *Service) DeleteFabric(ctx context.Context, id string) error {
	if err := s.Repo.DeleteFabric(ctx, id); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx)
	return nil
}

func (s *Service) LinkPattern(ctx context.Context, productID, patternID, fabricID string) error {
	if err := s.Repo.LinkPattern(ctx, productID, patternID, fabricID); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx)
	return nil
}

func (s *Service) UnlinkPattern(ctx context.Context, productID, patternID string) error {
	if err := s.Repo.UnlinkPattern(ctx, productID, patternID); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx)
	return nil
}

// Seed writes c only when the catalog is empty. It reports whether it wrote anything.
func (s *Service) Seed(ctx context.Context, c Catalog) (bool, error) {
	has, err := s.Repo.HasProducts(ctx)
	if err != nil || has {
		return false, err
	}
	if err := s.SaveProducts(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}
