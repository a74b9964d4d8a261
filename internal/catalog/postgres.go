package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/glowcare/storefront/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// txdb is a dbtx that can also open transactions, e.g. *pgxpool.Pool.
type txdb interface {
	dbtx
	db.TxStarter
}

// PGStore implements ReadWriter on PostgreSQL.
type PGStore struct {
	db txdb
}

// NewPGStore constructs a PostgreSQL backed store.
func NewPGStore(pool txdb) *PGStore {
	return &PGStore{db: pool}
}

const productColumns = `id::text, name, description, price::float8, original_price::float8, discount::float8, image,
	category, brand, color, material, size, in_stock, stock_quantity, featured, status, created_at, updated_at`

var fieldColumns = map[Field]string{
	FieldName:        "name",
	FieldDescription: "description",
	FieldCategory:    "category",
	FieldBrand:       "brand",
	FieldColor:       "color",
	FieldMaterial:    "material",
	FieldSize:        "size",
}

// Find implements Store.
func (s *PGStore) Find(ctx context.Context, c Criteria, opts FindOptions) ([]Product, error) {
	where, args := buildWhere(c)
	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY created_at DESC, seq ASC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Count implements Store.
func (s *PGStore) Count(ctx context.Context, c Criteria) (int, error) {
	where, args := buildWhere(c)
	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Distinct implements Store.
func (s *PGStore) Distinct(ctx context.Context, field Field, c Criteria) ([]string, error) {
	col, ok := fieldColumns[field]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown field %q", field)
	}
	where, args := buildWhere(c)
	if where == "" {
		where = ` WHERE ` + col + ` <> ''`
	} else {
		where += ` AND ` + col + ` <> ''`
	}
	rows, err := s.db.Query(ctx, `SELECT DISTINCT `+col+` FROM products`+where+` ORDER BY `+col, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// PriceRange implements Store.
func (s *PGStore) PriceRange(ctx context.Context, c Criteria) (float64, float64, bool, error) {
	where, args := buildWhere(c)
	var lo, hi *float64
	err := s.db.QueryRow(ctx, `SELECT MIN(price)::float8, MAX(price)::float8 FROM products`+where, args...).Scan(&lo, &hi)
	if err != nil {
		return 0, 0, false, err
	}
	if lo == nil || hi == nil {
		return 0, 0, false, nil
	}
	return *lo, *hi, true, nil
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, id string) (Product, error) {
	return getProduct(ctx, s.db, id, "")
}

// Create implements Writer.
func (s *PGStore) Create(ctx context.Context, p Product) error {
	_, err := s.db.Exec(ctx, `INSERT INTO products (id, name, description, price, original_price, discount, image,
		category, brand, color, material, size, in_stock, stock_quantity, featured, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Discount, p.Image,
		p.Category, p.Brand, p.Color, p.Material, p.Size, p.InStock, p.StockQuantity, p.Featured, string(p.Status),
		p.CreatedAt, p.UpdatedAt)
	return err
}

// Modify implements Writer using a row lock inside a transaction.
func (s *PGStore) Modify(ctx context.Context, id string, fn func(p *Product) error) (Product, error) {
	var before Product
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := getProduct(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		before = current
		next := cloneProduct(current)
		if err := fn(&next); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE products SET name = $1, description = $2, price = $3, original_price = $4,
			discount = $5, image = $6, category = $7, brand = $8, color = $9, material = $10, size = $11,
			in_stock = $12, stock_quantity = $13, featured = $14, status = $15, updated_at = $16 WHERE id = $17`,
			next.Name, next.Description, next.Price, next.OriginalPrice, next.Discount, next.Image,
			next.Category, next.Brand, next.Color, next.Material, next.Size,
			next.InStock, next.StockQuantity, next.Featured, string(next.Status), next.UpdatedAt, id)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	return before, nil
}

// Delete implements Writer.
func (s *PGStore) Delete(ctx context.Context, id string) (Product, error) {
	row := s.db.QueryRow(ctx, `DELETE FROM products WHERE id = $1 RETURNING `+productColumns, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func getProduct(ctx context.Context, q dbtx, id, suffix string) (Product, error) {
	row := q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`+suffix, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p      Product
		status string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.Discount, &p.Image,
		&p.Category, &p.Brand, &p.Color, &p.Material, &p.Size, &p.InStock, &p.StockQuantity, &p.Featured,
		&status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Status = Status(status)
	return p, nil
}

// buildWhere renders c as a parameterised WHERE clause. It returns an empty
// clause when c holds no constraint.
func buildWhere(c Criteria) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if c.Status != nil {
		clauses = append(clauses, `status = `+bind(string(*c.Status)))
	}
	for _, m := range c.Contains {
		col, ok := fieldColumns[m.Field]
		if !ok || m.Needle == "" {
			continue
		}
		clauses = append(clauses, col+` ILIKE `+bind(likePattern(m.Needle))+` ESCAPE '\'`)
	}
	if c.PriceMin != nil {
		clauses = append(clauses, `price >= `+bind(*c.PriceMin))
	}
	if c.PriceMax != nil {
		clauses = append(clauses, `price <= `+bind(*c.PriceMax))
	}
	if c.Featured != nil {
		clauses = append(clauses, `featured = `+bind(*c.Featured))
	}
	if c.Search != "" {
		placeholder := bind(likePattern(c.Search))
		parts := make([]string, 0, len(SearchFields))
		for _, f := range SearchFields {
			parts = append(parts, fieldColumns[f]+` ILIKE `+placeholder+` ESCAPE '\'`)
		}
		clauses = append(clauses, `(`+strings.Join(parts, ` OR `)+`)`)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps needle for a literal substring ILIKE match.
func likePattern(needle string) string {
	return "%" + likeEscaper.Replace(needle) + "%"
}
