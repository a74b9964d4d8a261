package catalog

import "context"

// FindOptions bounds a Find call. A non-positive Limit returns every match.
// Results are always ordered newest first, ties in storage order.
type FindOptions struct {
	Offset int
	Limit  int
}

// Store is the read side of product persistence.
type Store interface {
	Find(ctx context.Context, c Criteria, opts FindOptions) ([]Product, error)
	Count(ctx context.Context, c Criteria) (int, error)
	Distinct(ctx context.Context, field Field, c Criteria) ([]string, error)
	// PriceRange reports ok=false when nothing matches.
	PriceRange(ctx context.Context, c Criteria) (lo, hi float64, ok bool, err error)
	Get(ctx context.Context, id string) (Product, error)
}

// Writer is the administrative write side of product persistence.
type Writer interface {
	Create(ctx context.Context, p Product) error
	// Modify applies fn to the stored product atomically and persists the result.
	// It returns the product as it was before fn ran.
	Modify(ctx context.Context, id string, fn func(p *Product) error) (Product, error)
	// Delete removes the product and returns it.
	Delete(ctx context.Context, id string) (Product, error)
}

// ReadWriter is a store supporting both sides.
type ReadWriter interface {
	Store
	Writer
}
