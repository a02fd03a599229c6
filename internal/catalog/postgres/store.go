package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/openshopco/searchcore/internal/catalog"
	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/pkg/database"
)

const defaultCandidateLimit = 1000

// Store implements catalog.Store on top of the shared products table.
// It is read-only; writes belong to the product service.
type Store struct {
	pool database.DBTX
}

// New creates a PostgreSQL-backed catalog store.
func New(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// FindProducts returns candidate products for the tenant, pushing every
// structured predicate into the WHERE clause. Each text term narrows with
// ILIKE, any term is enough; ranking happens in the relevance scorer, not
// here.
func (s *Store) FindProducts(ctx context.Context, tenantID string, filter catalog.ProductFilter) ([]domain.Product, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argIndex := 2

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.PriceMin != nil {
		conditions = append(conditions, fmt.Sprintf("COALESCE(sale_price, base_price) >= $%d", argIndex))
		args = append(args, *filter.PriceMin)
		argIndex++
	}

	if filter.PriceMax != nil {
		conditions = append(conditions, fmt.Sprintf("COALESCE(sale_price, base_price) <= $%d", argIndex))
		args = append(args, *filter.PriceMax)
		argIndex++
	}

	if filter.InStock != nil && *filter.InStock {
		conditions = append(conditions, "stock > 0")
	}

	if len(filter.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", argIndex))
		args = append(args, filter.Tags)
		argIndex++
	}

	if len(filter.Terms) > 0 {
		// One ILIKE group per term, OR-joined, so synonym alternatives
		// widen the candidate set.
		alternatives := make([]string, 0, len(filter.Terms))
		for _, term := range filter.Terms {
			alternatives = append(alternatives, fmt.Sprintf(
				"(name ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE $%d))",
				argIndex, argIndex, argIndex,
			))
			args = append(args, "%"+term+"%")
			argIndex++
		}
		conditions = append(conditions, "("+strings.Join(alternatives, " OR ")+")")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, name, description, tags, category_id, category_name,
			   base_price, sale_price, stock, avg_rating, review_count, created_at, images
		FROM products
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d`,
		strings.Join(conditions, " AND "), argIndex,
	)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.TenantID,
			&p.Name,
			&p.Description,
			&p.Tags,
			&p.CategoryID,
			&p.CategoryName,
			&p.BasePrice,
			&p.SalePrice,
			&p.Stock,
			&p.AvgRating,
			&p.ReviewCount,
			&p.CreatedAt,
			&p.Images,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}
