package catalog

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ParseQuery reads a listing request from URL query parameters. Absent or empty
// values impose no constraint; malformed values fail with ErrInvalidQuery.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{
		Filter: Filter{
			Category: strings.TrimSpace(values.Get("category")),
			Brand:    strings.TrimSpace(values.Get("brand")),
			Color:    strings.TrimSpace(values.Get("color")),
			Material: strings.TrimSpace(values.Get("material")),
			Size:     strings.TrimSpace(values.Get("size")),
			Search:   strings.TrimSpace(values.Get("search")),
		},
		PageRequest: PageRequest{Page: DefaultPage, Limit: DefaultLimit},
	}

	var err error
	if q.MinPrice, err = parsePrice(values, "minPrice"); err != nil {
		return Query{}, err
	}
	if q.MaxPrice, err = parsePrice(values, "maxPrice"); err != nil {
		return Query{}, err
	}
	if raw := strings.TrimSpace(values.Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return Query{}, fmt.Errorf("%w: featured must be true or false", ErrInvalidQuery)
		}
		q.Featured = &featured
	}
	if q.Page, err = parseInt(values, "page", DefaultPage); err != nil {
		return Query{}, err
	}
	if q.Limit, err = parseInt(values, "limit", DefaultLimit); err != nil {
		return Query{}, err
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks the pagination window.
func (q Query) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be a positive integer", ErrInvalidQuery)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("%w: limit must be a positive integer", ErrInvalidQuery)
	}
	for _, bound := range []*float64{q.MinPrice, q.MaxPrice} {
		if bound != nil && (math.IsNaN(*bound) || math.IsInf(*bound, 0)) {
			return fmt.Errorf("%w: price bounds must be finite numbers", ErrInvalidQuery)
		}
	}
	return nil
}

// Offset is the zero-based index of the first product on the page. Windows
// that lie past math.MaxInt saturate there, so they read as beyond range.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// NewPagination derives page metadata for a page that returned `returned`
// products out of `total` matches.
func NewPagination(req PageRequest, returned, total int) Pagination {
	totalPages := 0
	if req.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(req.Limit)))
	}
	return Pagination{
		CurrentPage:   req.Page,
		TotalPages:    totalPages,
		TotalProducts: total,
		HasNext:       req.Offset() < total-returned,
		HasPrev:       req.Page > 1,
	}
}

func parseInt(values url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidQuery, key)
	}
	return n, nil
}

func parsePrice(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidQuery, key)
	}
	return &v, nil
}
