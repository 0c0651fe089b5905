package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
)

const productColumns = `
		p.id, p.name, p.slug, p.price, p.description, p.short_description, p.sku, p.brand,
		p.is_featured, p.is_verified, p.stock, p.created_at, p.updated_at,
		c.id, c.name, c.slug`

const productFrom = `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p                domain.Product
		catID            sql.NullInt64
		catName, catSlug sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Description, &p.ShortDescription,
		&p.SKU, &p.Brand, &p.IsFeatured, &p.IsVerified, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catSlug)
	if err != nil {
		return domain.Product{}, err
	}
	if catID.Valid {
		p.Category = &domain.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
	}
	return p, nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(m.db.QueryRowContext(ctx,
		`SELECT`+productColumns+productFrom+`
		WHERE p.id = ?`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	products, err := m.queryProducts(ctx,
		`SELECT`+productColumns+productFrom+`
		WHERE p.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	where, args := productWhere(filter)
	page := domain.ProductPage{Page: filter.Page, PageSize: filter.PageSize}

	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*)`+productFrom+where, args...).Scan(&page.Total)
	if err != nil {
		return domain.ProductPage{}, fmt.Errorf("count products: %w", err)
	}
	if filter.PageSize > 0 {
		page.TotalPages = (page.Total + filter.PageSize - 1) / filter.PageSize
	}
	if page.Total == 0 {
		return page, nil
	}

	query := `SELECT` + productColumns + productFrom + where + `
		ORDER BY p.created_at DESC, p.id DESC`
	if filter.PageSize > 0 {
		query += `
		LIMIT ? OFFSET ?`
		args = append(args, filter.PageSize, filter.Offset())
	}

	page.Products, err = m.queryProducts(ctx, query, args...)
	if err != nil {
		return domain.ProductPage{}, err
	}
	return page, nil
}

func (m *MySQLAdapter) ListFeatured(ctx context.Context, limit int) ([]domain.Product, error) {
	return m.queryProducts(ctx,
		`SELECT`+productColumns+productFrom+`
		WHERE p.is_featured = TRUE
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?`, limit)
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func productWhere(f domain.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Query != "" {
		like := "%" + escapeLike(f.Query) + "%"
		conds = append(conds, `(p.name LIKE ? OR p.description LIKE ? OR p.brand LIKE ?)`)
		args = append(args, like, like, like)
	}
	if f.CategorySlug != "" {
		conds = append(conds, `c.slug = ?`)
		args = append(args, f.CategorySlug)
	}
	if f.VerifiedOnly {
		conds = append(conds, `p.is_verified = TRUE`)
	}
	if f.InStockOnly {
		conds = append(conds, `p.stock > 0`)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return `
		WHERE ` + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
