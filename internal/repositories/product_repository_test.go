package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/NIRoberto/ecommerce-api/internal/models"
	repository "github.com/NIRoberto/ecommerce-api/internal/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductRepo(t *testing.T) (repository.ProductRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return repository.NewProductRepo(db), mock
}

func productRows(p *models.Product, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "category", "price", "quantity", "in_stock", "images", "created_at", "updated_at",
	}).AddRow(p.ID, p.Name, p.Description, p.Category, p.Price, p.Quantity, p.InStock, []byte(`{}`), now, now)
}

func TestCreateProduct(t *testing.T) {

	t.Run("Success", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		product := &models.Product{
			ID:       uuid.New(),
			Name:     "Mechanical Keyboard",
			Category: "electronics",
			Price:    89.99,
			Quantity: 12,
			InStock:  true,
			Images:   []string{"https://img.example.com/kb.png"},
		}

		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products`)).
			WithArgs(product.ID, product.Name, product.Description, product.Category,
				product.Price, product.Quantity, product.InStock, pq.Array(product.Images)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		// Act
		err := repo.CreateProduct(context.Background(), product)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, now, product.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetProductByID(t *testing.T) {

	t.Run("Success", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		want := &models.Product{
			ID:       uuid.New(),
			Name:     "Mechanical Keyboard",
			Category: "electronics",
			Price:    89.99,
			Quantity: 12,
			InStock:  true,
		}

		mock.ExpectQuery(regexp.QuoteMeta(`FROM products`)).
			WithArgs(want.ID).
			WillReturnRows(productRows(want, time.Now()))

		// Act
		got, err := repo.GetProductByID(context.Background(), want.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.True(t, got.InStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - product does not exist", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(`FROM products`)).
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		// Act
		got, err := repo.GetProductByID(context.Background(), id)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetProductForUpdate(t *testing.T) {

	t.Run("Success - locks the row", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		want := &models.Product{
			ID:       uuid.New(),
			Name:     "USB Hub",
			Category: "electronics",
			Price:    25.00,
			Quantity: 4,
			InStock:  true,
		}

		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
			WithArgs(want.ID).
			WillReturnRows(productRows(want, time.Now()))

		// Act
		got, err := repo.GetProductForUpdate(context.Background(), want.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateStock(t *testing.T) {

	t.Run("Success", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE products`)).
			WithArgs(3, true, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Act
		err := repo.UpdateStock(context.Background(), id, 3, true)

		// Assert
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - product does not exist", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE products`)).
			WithArgs(0, false, id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		// Act
		err := repo.UpdateStock(context.Background(), id, 0, false)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteProduct(t *testing.T) {

	t.Run("Success", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products`)).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// Act
		err := repo.DeleteProduct(context.Background(), id)

		// Assert
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - product does not exist", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM products`)).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		// Act
		err := repo.DeleteProduct(context.Background(), id)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListProducts(t *testing.T) {

	t.Run("Success", func(t *testing.T) {

		// Arrange
		repo, mock := newProductRepo(t)

		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM products`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		rows := sqlmock.NewRows([]string{
			"id", "name", "description", "category", "price", "quantity", "in_stock", "images", "created_at", "updated_at",
		}).
			AddRow(uuid.New(), "Keyboard", "", "electronics", 89.99, 12, true, []byte(`{}`), now, now).
			AddRow(uuid.New(), "Mouse", "", "electronics", 39.99, 0, false, []byte(`{}`), now, now)

		mock.ExpectQuery(regexp.QuoteMeta(`FROM products`)).
			WithArgs(10, 0).
			WillReturnRows(rows)

		// Act
		products, total, err := repo.ListProducts(context.Background(), 1, 10)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, products, 2)
		assert.Equal(t, "Keyboard", products[0].Name)
		assert.False(t, products[1].InStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
