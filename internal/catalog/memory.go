package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// MemoryStore keeps products in process. It backs tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu       sync.RWMutex
	products []Product
}

// NewMemoryStore returns a store seeded with products in insertion order.
func NewMemoryStore(seed ...Product) *MemoryStore {
	s := &MemoryStore{}
	for _, p := range seed {
		s.products = append(s.products, cloneProduct(p))
	}
	return s
}

// Find implements Store.
func (s *MemoryStore) Find(ctx context.Context, c Criteria, opts FindOptions) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := s.match(c)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(matches) {
			return []Product{}, nil
		}
		matches = matches[opts.Offset:]
	}
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context, c Criteria) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(s.match(c)), nil
}

// Distinct implements Store.
func (s *MemoryStore) Distinct(ctx context.Context, field Field, c Criteria) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, p := range s.match(c) {
		v := p.Value(field)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// PriceRange implements Store.
func (s *MemoryStore) PriceRange(ctx context.Context, c Criteria) (float64, float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, false, err
	}
	matches := s.match(c)
	if len(matches) == 0 {
		return 0, 0, false, nil
	}
	lo, hi := matches[0].Price, matches[0].Price
	for _, p := range matches[1:] {
		lo = min(lo, p.Price)
		hi = max(hi, p.Price)
	}
	return lo, hi, true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return cloneProduct(s.products[i]), nil
	}
	return Product{}, ErrNotFound
}

// Create implements Writer.
func (s *MemoryStore) Create(ctx context.Context, p Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(p.ID) >= 0 {
		return fmt.Errorf("catalog: product %s already exists", p.ID)
	}
	s.products = append(s.products, cloneProduct(p))
	return nil
}

// Modify implements Writer.
func (s *MemoryStore) Modify(ctx context.Context, id string, fn func(p *Product) error) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	before := cloneProduct(s.products[i])
	next := cloneProduct(s.products[i])
	if err := fn(&next); err != nil {
		return Product{}, err
	}
	next.ID = before.ID
	s.products[i] = next
	return before, nil
}

// Delete implements Writer.
func (s *MemoryStore) Delete(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	removed := s.products[i]
	s.products = append(s.products[:i:i], s.products[i+1:]...)
	return removed, nil
}

func (s *MemoryStore) indexOf(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// match returns copies of every product satisfying c, in insertion order.
func (s *MemoryStore) match(c Criteria) []Product {
	m := newMatcher(c)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Product{}
	for _, p := range s.products {
		if m.matches(p) {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

// matcher evaluates Criteria in memory. A Caser is stateful, so each matcher
// owns its own.
type matcher struct {
	c      Criteria
	fold   cases.Caser
	needle map[Field]string
	search string
}

func newMatcher(c Criteria) *matcher {
	m := &matcher{c: c, fold: cases.Fold(), needle: map[Field]string{}}
	for _, fm := range c.Contains {
		m.needle[fm.Field] = m.fold.String(fm.Needle)
	}
	m.search = m.fold.String(c.Search)
	return m
}

func (m *matcher) matches(p Product) bool {
	if m.c.Status != nil && p.Status != *m.c.Status {
		return false
	}
	if m.c.Featured != nil && p.Featured != *m.c.Featured {
		return false
	}
	if m.c.PriceMin != nil && p.Price < *m.c.PriceMin {
		return false
	}
	if m.c.PriceMax != nil && p.Price > *m.c.PriceMax {
		return false
	}
	for field, needle := range m.needle {
		if !strings.Contains(m.fold.String(p.Value(field)), needle) {
			return false
		}
	}
	if m.search != "" {
		for _, field := range SearchFields {
			if strings.Contains(m.fold.String(p.Value(field)), m.search) {
				return true
			}
		}
		return false
	}
	return true
}

func cloneProduct(p Product) Product {
	p.OriginalPrice = copyFloat(p.OriginalPrice)
	return p
}
