package repository

import (
	"context"

	"github.com/NIRoberto/ecommerce-api/internal/models"
	"github.com/NIRoberto/ecommerce-api/internal/utils"
	"github.com/google/uuid"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type userRepository struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (id, first_name, last_name, email, password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(dbCtx, query, user.ID, user.FirstName, user.LastName, user.Email, user.Password, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
}

// GetUserByEmail expects an already-lowercased email; the service normalizes
// before calling so the unique index stays case-insensitive.
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user := &models.User{}

	query := `
		SELECT id, first_name, last_name, email, password, role, created_at, updated_at
		FROM users
		WHERE email = $1`

	err := r.db.QueryRowContext(dbCtx, query, email).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Password, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user := &models.User{}

	query := `
		SELECT id, first_name, last_name, email, password, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.QueryRowContext(dbCtx, query, id).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Password, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return user, nil
}
