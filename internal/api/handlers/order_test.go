package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NIRoberto/ecommerce-api/internal/api/handlers"
	"github.com/NIRoberto/ecommerce-api/internal/api/middleware"
	apperrors "github.com/NIRoberto/ecommerce-api/internal/errors"
	"github.com/NIRoberto/ecommerce-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func authenticated(req *http.Request, userID uuid.UUID, role models.Role) *http.Request {
	claims := &models.Claims{UserID: userID, Role: role}

	return req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, claims))
}

func TestCreateOrderHandler(t *testing.T) {

	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		order := &models.Order{ID: uuid.New(), UserID: userID, Status: models.OrderStatusPending}

		svc.On("CreateOrder", mock.Anything, userID, mock.AnythingOfType("*models.CreateOrderRequest")).
			Return(order, nil).Once()

		payload := `{"shipping_address":{"street":"12 Main St","city":"Kigali","country":"Rwanda","zip_code":"00000"}}`

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(payload)), userID, models.RoleCustomer)
		rec := httptest.NewRecorder()

		// Act
		handler.CreateOrder().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, decodeResponse(t, rec).Success)
	})

	t.Run("Failure - empty cart maps to 400", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		svc.On("CreateOrder", mock.Anything, userID, mock.AnythingOfType("*models.CreateOrderRequest")).
			Return(nil, apperrors.StateError("Cannot create order with empty cart")).Once()

		payload := `{"shipping_address":{"street":"12 Main St","city":"Kigali","country":"Rwanda","zip_code":"00000"}}`

		req := authenticated(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(payload)), userID, models.RoleCustomer)
		rec := httptest.NewRecorder()

		// Act
		handler.CreateOrder().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.ErrCodeState, decodeResponse(t, rec).Error.Code)
	})

	t.Run("Failure - no authenticated identity", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		// Act
		handler.CreateOrder().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetOrderHandler(t *testing.T) {

	t.Run("Failure - another user's order is forbidden", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		orderID := uuid.New()
		order := &models.Order{ID: orderID, UserID: uuid.New()}

		svc.On("GetOrderByID", mock.Anything, orderID).Return(order, nil).Once()

		req := authenticated(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), uuid.New(), models.RoleCustomer)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		// Act
		handler.GetOrder().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, apperrors.ErrCodeForbidden, decodeResponse(t, rec).Error.Code)
	})

	t.Run("Failure - malformed order id", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		req := authenticated(httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil), uuid.New(), models.RoleCustomer)
		req.SetPathValue("id", "not-a-uuid")
		rec := httptest.NewRecorder()

		// Act
		handler.GetOrder().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		svc.AssertNotCalled(t, "GetOrderByID", mock.Anything, mock.Anything)
	})
}

func TestUpdateOrderStatusHandler(t *testing.T) {

	t.Run("Success", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		orderID := uuid.New()
		order := &models.Order{ID: orderID, Status: models.OrderStatusShipped}

		svc.On("UpdateOrderStatus", mock.Anything, orderID, models.OrderStatusShipped).Return(order, nil).Once()

		req := authenticated(httptest.NewRequest(http.MethodPut, "/api/v1/orders/admin/"+orderID.String()+"/status",
			strings.NewReader(`{"status":"shipped"}`)), uuid.New(), models.RoleAdmin)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		// Act
		handler.UpdateOrderStatus().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Failure - status outside the enum is rejected at the edge", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		orderID := uuid.New()

		req := authenticated(httptest.NewRequest(http.MethodPut, "/api/v1/orders/admin/"+orderID.String()+"/status",
			strings.NewReader(`{"status":"returned"}`)), uuid.New(), models.RoleAdmin)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		// Act
		handler.UpdateOrderStatus().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		body := decodeResponse(t, rec)
		require.NotNil(t, body.Error)
		assert.Equal(t, apperrors.ErrCodeValidation, body.Error.Code)

		svc.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListOrdersHandler(t *testing.T) {

	t.Run("Success - pagination defaults applied", func(t *testing.T) {

		// Arrange
		svc := newOrderServiceMock(t)
		handler := handlers.NewOrderHandler(svc)

		userID := uuid.New()

		svc.On("ListOrdersByUser", mock.Anything, userID, 1, 10).Return([]models.Order{}, 0, nil).Once()

		req := authenticated(httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=0&pageSize=500", nil), userID, models.RoleCustomer)
		rec := httptest.NewRecorder()

		// Act
		handler.ListOrders().ServeHTTP(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
