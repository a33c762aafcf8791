package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/NIRoberto/ecommerce-api/internal/errors"
	"github.com/NIRoberto/ecommerce-api/internal/models"
	repository "github.com/NIRoberto/ecommerce-api/internal/repositories"
	"github.com/NIRoberto/ecommerce-api/internal/utils/response"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserContextKey = contextKey("user")

// ClaimsFromContext returns the authenticated identity placed on the context
// by Authenticate.
func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)

	return claims, ok
}

type AuthMiddleware struct {
	jwtKey   []byte
	userRepo repository.UserRepository
}

func NewAuthMiddleware(jwtKey []byte, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{jwtKey: jwtKey, userRepo: userRepo}
}

// Authenticate verifies the bearer token and confirms the identity still
// exists before any handler logic runs. A deleted account with a live token
// gets the same 401 as a bad token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header")
			response.Error(w, errors.UnauthorizedError("Authorization header is required"))
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			logger.Warn("Invalid authorization header format")
			response.Error(w, errors.UnauthorizedError("Invalid authorization format"))
			return
		}

		claims := &models.Claims{}

		token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.BadRequestError("unexpected signing method")
			}

			return m.jwtKey, nil
		})

		if err != nil || !token.Valid {
			logger.Warn("Token verification failed", slog.Any("error", err))
			response.Error(w, errors.UnauthorizedError("Invalid or expired token"))
			return
		}

		if _, err := m.userRepo.GetUserByID(r.Context(), claims.UserID); err != nil {
			logger.Warn("Token references unknown user", slog.String("userId", claims.UserID.String()))
			response.Error(w, errors.UnauthorizedError("Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)

		requestLogger := logger.With(slog.String("userId", claims.UserID.String()))
		ctx = context.WithValue(ctx, loggerKey, requestLogger)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireAdmin gates administrative routes on the role claim. It must run
// after Authenticate.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		if claims.Role != models.RoleAdmin {
			LoggerFromContext(r.Context()).Warn("Admin route denied",
				slog.String("userId", claims.UserID.String()), slog.String("role", string(claims.Role)))
			response.Error(w, errors.ForbiddenError("Administrator access required"))
			return
		}

		next.ServeHTTP(w, r)
	}
}
