package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ProductInput carries the editable fields of a product. Nil pointers keep the
// current value on update and take the default on create.
//
// Prices are bounded by the NUMERIC(12,2) columns of the Postgres store, which
// also rounds them to cents; MemoryStore keeps the full float64 value.
type ProductInput struct {
	Name          string   `validate:"required,max=200"`
	Description   string   `validate:"max=5000"`
	Price         *float64 `validate:"required,gte=0,lt=10000000000"`
	OriginalPrice *float64 `validate:"omitempty,gte=0,lt=10000000000"`
	Discount      *float64 `validate:"omitempty,gte=0,lte=100"`
	Category      string   `validate:"required,max=100"`
	Brand         string   `validate:"required,max=100"`
	Color         string   `validate:"max=100"`
	Material      string   `validate:"max=100"`
	Size          string   `validate:"max=100"`
	StockQuantity *int     `validate:"omitempty,gte=0"`
	InStock       *bool
	Featured      *bool
	Status        Status `validate:"omitempty,oneof=active inactive"`

	// Image replaces the stored image path when non-empty.
	Image string

	// ClearOriginalPrice drops the stored original price on update.
	ClearOriginalPrice bool
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Color = strings.TrimSpace(in.Color)
	in.Material = strings.TrimSpace(in.Material)
	in.Size = strings.TrimSpace(in.Size)
	in.Status = Status(strings.ToLower(strings.TrimSpace(string(in.Status))))
}

// AdminService implements the administrative write path.
type AdminService struct {
	store     ReadWriter
	validator *validator.Validate
	now       func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(store ReadWriter) *AdminService {
	return &AdminService{store: store, validator: validator.New(), now: time.Now}
}

// CreateProduct validates input and stores a new product.
func (s *AdminService) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := s.validate(&in); err != nil {
		return Product{}, err
	}
	now := s.now().UTC()
	p := Product{
		ID:        uuid.NewString(),
		InStock:   true,
		Status:    StatusActive,
		CreatedAt: now,
	}
	in.apply(&p, now)
	if err := s.store.Create(ctx, p); err != nil {
		return Product{}, storageErr("create product", err)
	}
	return p, nil
}

// UpdateProduct replaces the editable fields of product id. It returns the
// updated product and the image path it held before the update.
func (s *AdminService) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Product{}, "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.validate(&in); err != nil {
		return Product{}, "", err
	}
	var updated Product
	before, err := s.store.Modify(ctx, id, func(p *Product) error {
		in.apply(p, s.now().UTC())
		updated = cloneProduct(*p)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Product{}, "", storageErr("update product", err)
	}
	return updated, before.Image, nil
}

// DeleteProduct removes product id and returns it.
func (s *AdminService) DeleteProduct(ctx context.Context, id string) (Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Product{}, storageErr("delete product", err)
	}
	return removed, nil
}

func (in ProductInput) apply(p *Product, now time.Time) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = *in.Price
	p.Category = in.Category
	p.Brand = in.Brand
	p.Color = in.Color
	p.Material = in.Material
	p.Size = in.Size
	switch {
	case in.ClearOriginalPrice:
		p.OriginalPrice = nil
	case in.OriginalPrice != nil:
		p.OriginalPrice = copyFloat(in.OriginalPrice)
	}
	if in.Discount != nil {
		p.Discount = *in.Discount
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.Image != "" {
		p.Image = in.Image
	}
	p.UpdatedAt = now
}

func (s *AdminService) validate(in *ProductInput) error {
	in.normalize()
	err := s.validator.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(msgs, ", "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fe.Field() + " cannot be less than " + fe.Param()
	case "lte", "max":
		return fe.Field() + " cannot exceed " + fe.Param()
	case "lt":
		return fe.Field() + " must be less than " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
