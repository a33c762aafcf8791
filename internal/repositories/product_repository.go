package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NIRoberto/ecommerce-api/internal/models"
	"github.com/NIRoberto/ecommerce-api/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// GetProductForUpdate locks the product row until the surrounding
	// transaction ends. Only meaningful on a repository bound with WithTx.
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	UpdateStock(ctx context.Context, id uuid.UUID, quantity int, inStock bool) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error)
	WithTx(tx *sql.Tx) ProductRepository
}

type productRepository struct {
	db DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx *sql.Tx) ProductRepository {
	return &productRepository{db: tx}
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO products (id, name, description, category, price, quantity, in_stock, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(dbCtx, query,
		product.ID, product.Name, product.Description, product.Category,
		product.Price, product.Quantity, product.InStock, pq.Array(product.Images)).
		Scan(&product.CreatedAt, &product.UpdatedAt)
}

const productColumns = `id, name, description, category, price, quantity, in_stock, images, created_at, updated_at`

func (r *productRepository) scanProduct(row *sql.Row) (*models.Product, error) {

	product := &models.Product{}

	err := row.Scan(&product.ID, &product.Name, &product.Description, &product.Category,
		&product.Price, &product.Quantity, &product.InStock, pq.Array(&product.Images),
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1`

	return r.scanProduct(r.db.QueryRowContext(dbCtx, query, id))
}

func (r *productRepository) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1
		FOR UPDATE`

	return r.scanProduct(r.db.QueryRowContext(dbCtx, query, id))
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET name = $1, description = $2, category = $3, price = $4, quantity = $5, in_stock = $6, images = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	return r.db.QueryRowContext(dbCtx, query,
		product.Name, product.Description, product.Category, product.Price,
		product.Quantity, product.InStock, pq.Array(product.Images), product.ID).
		Scan(&product.UpdatedAt)
}

// UpdateStock writes only the stock columns. The order workflow uses it so a
// concurrent catalog edit cannot be clobbered by a full-row update.
func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, quantity int, inStock bool) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET quantity = $1, in_stock = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(dbCtx, query, quantity, inStock, id)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(dbCtx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	deletedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted rows: %w", err)
	}

	if deletedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *productRepository) ListProducts(ctx context.Context, page, size int) ([]*models.Product, int, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM products`

	if err := r.db.QueryRowContext(dbCtx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * size

	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product := &models.Product{}

		err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Category,
			&product.Price, &product.Quantity, &product.InStock, pq.Array(&product.Images),
			&product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}

		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}
