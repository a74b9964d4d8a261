package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Engine answers catalog read queries. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	store Store
}

// NewEngine constructs an Engine over store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ListProducts runs a public, visibility-restricted listing.
func (e *Engine) ListProducts(ctx context.Context, q Query) (ProductPage, error) {
	return e.Search(ctx, q, AccessPublic)
}

// Search runs a paginated listing at the given access level.
func (e *Engine) Search(ctx context.Context, q Query, access AccessLevel) (ProductPage, error) {
	if err := q.Validate(); err != nil {
		return ProductPage{}, err
	}
	criteria := BuildCriteria(q.Filter, access)

	total, err := e.store.Count(ctx, criteria)
	if err != nil {
		return ProductPage{}, storageErr("count products", err)
	}

	products := []Product{}
	if q.Offset() < total {
		found, err := e.store.Find(ctx, criteria, FindOptions{Offset: q.Offset(), Limit: q.Limit})
		if err != nil {
			return ProductPage{}, storageErr("find products", err)
		}
		if len(found) > q.Limit {
			found = found[:q.Limit]
		}
		products = append(products, found...)
	}

	return ProductPage{
		Products:   products,
		Pagination: NewPagination(q.PageRequest, len(products), total),
	}, nil
}

// ListAllProducts returns every product regardless of status, newest first.
func (e *Engine) ListAllProducts(ctx context.Context) ([]Product, error) {
	found, err := e.store.Find(ctx, BuildCriteria(Filter{}, AccessAdmin), FindOptions{})
	if err != nil {
		return nil, storageErr("list all products", err)
	}
	if found == nil {
		found = []Product{}
	}
	return found, nil
}

// GetProduct looks up a single product. Inactive products are not found at the
// public access level.
func (e *Engine) GetProduct(ctx context.Context, id string, access AccessLevel) (Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Product{}, storageErr("get product", err)
	}
	if access != AccessAdmin && p.Status != StatusActive {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// GetFilterOptions summarises the active catalog. Lookups run concurrently and
// the first failure fails the whole digest.
func (e *Engine) GetFilterOptions(ctx context.Context) (FilterOptions, error) {
	criteria := activeCriteria()
	values := make([][]string, len(OptionFields))
	priceRange := defaultPriceRange

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range OptionFields {
		g.Go(func() error {
			found, err := e.store.Distinct(gctx, field, criteria)
			if err != nil {
				return storageErr("distinct "+string(field), err)
			}
			values[i] = cleanValues(found)
			return nil
		})
	}
	g.Go(func() error {
		lo, hi, ok, err := e.store.PriceRange(gctx, criteria)
		if err != nil {
			return storageErr("price range", err)
		}
		if ok {
			priceRange = PriceRange{MinPrice: lo, MaxPrice: hi}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return FilterOptions{}, err
	}

	return FilterOptions{
		Categories: values[0],
		Brands:     values[1],
		Colors:     values[2],
		Materials:  values[3],
		Sizes:      values[4],
		PriceRange: priceRange,
	}, nil
}

// cleanValues drops empty and duplicate values and sorts the rest.
func cleanValues(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func storageErr(op string, err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("catalog: %s: %w: %w", op, ErrStorageUnavailable, err)
}
