package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type productOpt func(*Product)

// newProduct builds an active product created i hours after baseTime.
func newProduct(i int, name string, opts ...productOpt) Product {
	p := Product{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  "Skincare",
		Brand:     "GlowCare",
		Price:     10,
		InStock:   true,
		Status:    StatusActive,
		CreatedAt: baseTime.Add(time.Duration(i) * time.Hour),
	}
	p.UpdatedAt = p.CreatedAt
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func withStatus(s Status) productOpt { return func(p *Product) { p.Status = s } }
func withPrice(v float64) productOpt { return func(p *Product) { p.Price = v } }
func withFeatured(v bool) productOpt { return func(p *Product) { p.Featured = v } }
func withDescription(d string) productOpt { return func(p *Product) { p.Description = d } }
func withCategory(c string) productOpt { return func(p *Product) { p.Category = c } }
func withBrand(b string) productOpt { return func(p *Product) { p.Brand = b } }
func withImage(path string) productOpt { return func(p *Product) { p.Image = path } }
func withOptions(color, material, size string) productOpt {
	return func(p *Product) {
		p.Color = color
		p.Material = material
		p.Size = size
	}
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int { return &v }

func names(products []Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connection refused")

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Find(context.Context, Criteria, FindOptions) ([]Product, error) {
	return nil, errConnRefused
}

func (failingStore) Count(context.Context, Criteria) (int, error) { return 0, errConnRefused }

func (failingStore) Distinct(context.Context, Field, Criteria) ([]string, error) {
	return nil, errConnRefused
}

func (failingStore) PriceRange(context.Context, Criteria) (float64, float64, bool, error) {
	return 0, 0, false, errConnRefused
}

func (failingStore) Get(context.Context, string) (Product, error) { return Product{}, errConnRefused }

func (failingStore) Create(context.Context, Product) error { return errConnRefused }

func (failingStore) Modify(context.Context, string, func(*Product) error) (Product, error) {
	return Product{}, errConnRefused
}

func (failingStore) Delete(context.Context, string) (Product, error) {
	return Product{}, errConnRefused
}
