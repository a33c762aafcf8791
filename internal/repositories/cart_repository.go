package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/NIRoberto/ecommerce-api/internal/models"
	"github.com/NIRoberto/ecommerce-api/internal/utils"
	"github.com/google/uuid"
)

// CartRepository persists one cart document per user. The line items live in
// a single JSONB column so a cart mutation is always one row write.
type CartRepository interface {
	CreateCart(ctx context.Context, cart *models.Cart) error
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	UpdateCart(ctx context.Context, cart *models.Cart) error
	WithTx(tx *sql.Tx) CartRepository
}

type cartRepository struct {
	db DBTX
}

func NewCartRepo(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *sql.Tx) CartRepository {
	return &cartRepository{db: tx}
}

func (r *cartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	query := `
		INSERT INTO carts (id, user_id, items, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(dbCtx, query, cart.ID, cart.UserID, itemsJSON, cart.TotalAmount).
		Scan(&cart.CreatedAt, &cart.UpdatedAt)
}

func (r *cartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, items, total_amount, created_at, updated_at
		FROM carts
		WHERE user_id = $1`

	cart := &models.Cart{}

	var itemsJSON []byte

	err := r.db.QueryRowContext(dbCtx, query, userID).
		Scan(&cart.ID, &cart.UserID, &itemsJSON, &cart.TotalAmount, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &cart.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart items: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) UpdateCart(ctx context.Context, cart *models.Cart) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	query := `
		UPDATE carts
		SET items = $1, total_amount = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(dbCtx, query, itemsJSON, cart.TotalAmount, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to update the cart: %w", err)
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
