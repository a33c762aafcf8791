package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	apperrors "github.com/NIRoberto/ecommerce-api/internal/errors"
	"github.com/NIRoberto/ecommerce-api/internal/models"
	"github.com/NIRoberto/ecommerce-api/internal/repositories/mocks"
	service "github.com/NIRoberto/ecommerce-api/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testJWTKey = []byte("unit-test-signing-key")

func newUserService(t *testing.T) (service.UserService, *mocks.UserRepository, *mocks.RateLimiter) {
	userRepo := mocks.NewUserRepository(t)
	rateLimiter := mocks.NewRateLimiter(t)

	return service.NewUserService(userRepo, rateLimiter, testJWTKey, time.Hour), userRepo, rateLimiter
}

func parseClaims(t *testing.T, tokenString string) *models.Claims {
	t.Helper()

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return testJWTKey, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	return claims
}

func TestRegister(t *testing.T) {

	req := &models.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "Jane.Doe@Example.com",
		Password:  "password123",
	}

	t.Run("Success", func(t *testing.T) {

		// Arrange
		svc, userRepo, _ := newUserService(t)

		userRepo.On("GetUserByEmail", mock.Anything, "jane.doe@example.com").Return(nil, sql.ErrNoRows).Once()
		userRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()

		// Act
		resp, err := svc.Register(context.Background(), req)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "jane.doe@example.com", resp.User.Email)
		assert.Equal(t, models.RoleCustomer, resp.User.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(resp.User.Password), []byte(req.Password)))
		assert.Positive(t, resp.ExpiresIn)

		claims := parseClaims(t, resp.Token)
		assert.Equal(t, resp.User.ID, claims.UserID)
		assert.Equal(t, "jane.doe@example.com", claims.Email)
		assert.Equal(t, models.RoleCustomer, claims.Role)
	})

	t.Run("Failure - email already registered", func(t *testing.T) {

		// Arrange
		svc, userRepo, _ := newUserService(t)

		existing := &models.User{ID: uuid.New(), Email: "jane.doe@example.com"}

		userRepo.On("GetUserByEmail", mock.Anything, "jane.doe@example.com").Return(existing, nil).Once()

		// Act
		resp, err := svc.Register(context.Background(), req)

		// Assert
		require.Error(t, err)
		assert.Nil(t, resp)

		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeDuplicateEntry, appErr.Code)

		userRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Failure - concurrent registration loses to the unique index", func(t *testing.T) {

		// Arrange
		svc, userRepo, _ := newUserService(t)

		userRepo.On("GetUserByEmail", mock.Anything, "jane.doe@example.com").Return(nil, sql.ErrNoRows).Once()
		userRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).Return(&pq.Error{Code: "23505"}).Once()

		// Act
		resp, err := svc.Register(context.Background(), req)

		// Assert
		require.Error(t, err)
		assert.Nil(t, resp)

		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeDuplicateEntry, appErr.Code)
	})
}

func TestLogin(t *testing.T) {

	const password = "password123"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	registered := func() *models.User {
		return &models.User{
			ID:       uuid.New(),
			Email:    "jane.doe@example.com",
			Password: string(hash),
			Role:     models.RoleCustomer,
		}
	}

	t.Run("Success", func(t *testing.T) {

		// Arrange
		svc, userRepo, rateLimiter := newUserService(t)

		user := registered()

		rateLimiter.On("CheckLoginRateLimit", mock.Anything, user.Email).Return(true, 4, 0, nil).Once()
		userRepo.On("GetUserByEmail", mock.Anything, user.Email).Return(user, nil).Once()

		// Act
		resp, err := svc.Login(context.Background(), &models.LoginRequest{Email: "Jane.Doe@example.com", Password: password})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, user.ID, resp.User.ID)

		claims := parseClaims(t, resp.Token)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("Failure - wrong password and unknown email are indistinguishable", func(t *testing.T) {

		// Arrange
		svc, userRepo, rateLimiter := newUserService(t)

		user := registered()

		rateLimiter.On("CheckLoginRateLimit", mock.Anything, mock.AnythingOfType("string")).Return(true, 4, 0, nil).Twice()
		userRepo.On("GetUserByEmail", mock.Anything, user.Email).Return(user, nil).Once()
		userRepo.On("GetUserByEmail", mock.Anything, "nobody@example.com").Return(nil, sql.ErrNoRows).Once()

		// Act
		_, wrongPasswordErr := svc.Login(context.Background(), &models.LoginRequest{Email: user.Email, Password: "not-the-password"})
		_, unknownEmailErr := svc.Login(context.Background(), &models.LoginRequest{Email: "nobody@example.com", Password: password})

		// Assert
		require.Error(t, wrongPasswordErr)
		require.Error(t, unknownEmailErr)

		wrongPassword, ok := apperrors.IsAppError(wrongPasswordErr)
		require.True(t, ok)
		unknownEmail, ok := apperrors.IsAppError(unknownEmailErr)
		require.True(t, ok)

		assert.Equal(t, apperrors.ErrCodeUnauthorized, wrongPassword.Code)
		assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
		assert.Equal(t, wrongPassword.Message, unknownEmail.Message)
	})

	t.Run("Failure - rate limited", func(t *testing.T) {

		// Arrange
		svc, userRepo, rateLimiter := newUserService(t)

		rateLimiter.On("CheckLoginRateLimit", mock.Anything, "jane.doe@example.com").Return(false, 0, 42, nil).Once()

		// Act
		resp, err := svc.Login(context.Background(), &models.LoginRequest{Email: "jane.doe@example.com", Password: password})

		// Assert
		require.Error(t, err)
		assert.Nil(t, resp)

		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeTooManyRequests, appErr.Code)
		assert.Contains(t, appErr.Detail, "42")

		userRepo.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})
}

func TestGetUserByID(t *testing.T) {

	t.Run("Failure - user does not exist", func(t *testing.T) {

		// Arrange
		svc, userRepo, _ := newUserService(t)

		id := uuid.New()

		userRepo.On("GetUserByID", mock.Anything, id).Return(nil, sql.ErrNoRows).Once()

		// Act
		user, err := svc.GetUserByID(context.Background(), id)

		// Assert
		require.Error(t, err)
		assert.Nil(t, user)

		appErr, ok := apperrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
	})
}
