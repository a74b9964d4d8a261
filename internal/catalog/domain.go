// Package catalog implements the storefront product catalog: the filtered,
// paginated public listing, the unrestricted admin listing, the filter options
// digest and the admin write path.
package catalog

import "time"

// Status controls whether a product is visible through the public catalog.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// AccessLevel selects the visibility rule applied to a query.
type AccessLevel int

const (
	// AccessPublic restricts results to active products.
	AccessPublic AccessLevel = iota
	// AccessAdmin returns products of every status.
	AccessAdmin
)

func (a AccessLevel) String() string {
	if a == AccessAdmin {
		return "admin"
	}
	return "public"
}

// Product is a catalog entry.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	Discount      float64   `json:"discount"`
	Image         string    `json:"image"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand"`
	Color         string    `json:"color"`
	Material      string    `json:"material"`
	Size          string    `json:"size"`
	InStock       bool      `json:"inStock"`
	StockQuantity int       `json:"stockQuantity"`
	Featured      bool      `json:"featured"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Filter narrows a product query. Empty strings and nil pointers mean no constraint.
type Filter struct {
	Category string
	Brand    string
	Color    string
	Material string
	Size     string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Featured *bool
}

const (
	DefaultPage  = 1
	DefaultLimit = 12
)

// PageRequest is a 1-indexed page window.
type PageRequest struct {
	Page  int
	Limit int
}

// Query is a complete catalog listing request.
type Query struct {
	Filter
	PageRequest
}

// NewQuery returns a query for the first page with the default page size.
func NewQuery(f Filter) Query {
	return Query{Filter: f, PageRequest: PageRequest{Page: DefaultPage, Limit: DefaultLimit}}
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalProducts int  `json:"totalProducts"`
	HasNext       bool `json:"hasNext"`
	HasPrev       bool `json:"hasPrev"`
}

// ProductPage is one page of a listing plus its pagination metadata.
type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// PriceRange is the inclusive span of prices over the active catalog.
type PriceRange struct {
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
}

// FilterOptions lists the values a storefront can offer as filter choices.
type FilterOptions struct {
	Categories []string   `json:"categories"`
	Brands     []string   `json:"brands"`
	Colors     []string   `json:"colors"`
	Materials  []string   `json:"materials"`
	Sizes      []string   `json:"sizes"`
	PriceRange PriceRange `json:"priceRange"`
}

// defaultPriceRange is reported when no active product exists.
var defaultPriceRange = PriceRange{MinPrice: 0, MaxPrice: 100}
