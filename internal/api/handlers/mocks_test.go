package handlers_test

import (
	"context"
	"testing"

	"github.com/NIRoberto/ecommerce-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type userServiceMock struct {
	mock.Mock
}

func newUserServiceMock(t *testing.T) *userServiceMock {
	m := &userServiceMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *userServiceMock) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	args := m.Called(ctx, req)

	if resp := args.Get(0); resp != nil {
		return resp.(*models.AuthResponse), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *userServiceMock) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	args := m.Called(ctx, req)

	if resp := args.Get(0); resp != nil {
		return resp.(*models.AuthResponse), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *userServiceMock) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)

	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}

	return nil, args.Error(1)
}

type orderServiceMock struct {
	mock.Mock
}

func newOrderServiceMock(t *testing.T) *orderServiceMock {
	m := &orderServiceMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *orderServiceMock) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, userID, req)

	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *orderServiceMock) CancelOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, userID, orderID)

	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *orderServiceMock) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)

	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *orderServiceMock) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, userID, page, size)

	if orders := args.Get(0); orders != nil {
		return orders.([]models.Order), args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *orderServiceMock) ListAllOrders(ctx context.Context, page, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, page, size)

	if orders := args.Get(0); orders != nil {
		return orders.([]models.Order), args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *orderServiceMock) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)

	if order := args.Get(0); order != nil {
		return order.(*models.Order), args.Error(1)
	}

	return nil, args.Error(1)
}
