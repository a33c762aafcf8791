package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NIRoberto/ecommerce-api/internal/cache"
	apperrors "github.com/NIRoberto/ecommerce-api/internal/errors"
	"github.com/NIRoberto/ecommerce-api/internal/models"
	repository "github.com/NIRoberto/ecommerce-api/internal/repositories"
	"github.com/NIRoberto/ecommerce-api/pkg/sendgrid"
	"github.com/google/uuid"
)

// TxBeginner starts a database transaction. *repository.Repositories
// satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*models.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error)
	ListAllOrders(ctx context.Context, page, size int) ([]models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	db          TxBeginner
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	cache       cache.Cache
	emailer     sendgrid.EmailService
}

func NewOrderService(
	db TxBeginner,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	productCache cache.Cache,
	emailer sendgrid.EmailService,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		cache:       productCache,
		emailer:     emailer,
	}
}

// CreateOrder converts the caller's cart into an order: it locks each
// product row, checks and decrements stock, snapshots the cart price and
// product name per line, creates the order and empties the cart — all inside
// one transaction. Any failure rolls the whole sequence back.
func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {

	if err := validateAddress(&req.ShippingAddress); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to start transaction").WithError(err)
	}

	defer func() { _ = tx.Rollback() }()

	cartRepo := s.cartRepo.WithTx(tx)
	productRepo := s.productRepo.WithTx(tx)
	orderRepo := s.orderRepo.WithTx(tx)

	cart, err := cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.StateError("Cannot create order with empty cart")
		}

		return nil, apperrors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	if len(cart.Items) == 0 {
		return nil, apperrors.StateError("Cannot create order with empty cart")
	}

	var orderItems []models.OrderItem
	var totalAmount float64

	for _, item := range cart.Items {

		product, err := productRepo.GetProductForUpdate(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperrors.NotFoundError("Product no longer exists: " + item.ProductID.String()).WithError(err)
			}

			return nil, apperrors.DatabaseError("Failed to fetch product").WithError(err)
		}

		if !product.InStock || product.Quantity < item.Quantity {
			return nil, apperrors.StateError("Insufficient stock for product: " + product.Name)
		}

		newQuantity := product.Quantity - item.Quantity

		if err := productRepo.UpdateStock(ctx, product.ID, newQuantity, newQuantity > 0); err != nil {
			return nil, apperrors.DatabaseError("Failed to update inventory").WithError(err)
		}

		// Price comes from the cart line, not the live product: the caller
		// pays what the catalog showed when the item went into the cart.
		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})

		totalAmount += item.Price * float64(item.Quantity)
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           orderItems,
		TotalAmount:     totalAmount,
		ShippingAddress: req.ShippingAddress,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}

	if err := orderRepo.CreateOrder(ctx, order); err != nil {
		return nil, apperrors.DatabaseError("Failed to create order").WithError(err)
	}

	cart.Items = []models.CartItem{}
	cart.RecalculateTotal()

	if err := cartRepo.UpdateCart(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to clear cart").WithError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.DatabaseError("Failed to commit order").WithError(err)
	}

	s.invalidateProducts(ctx, order.Items)
	s.sendConfirmation(ctx, order)

	return order, nil
}

// CancelOrder puts every line's quantity back on the product and marks the
// order cancelled, atomically. Only the owner's pending orders qualify.
// Restored stock always flips in_stock back to true: the restored quantity
// is at least the line quantity, which is >= 1.
func (s *orderService) CancelOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*models.Order, error) {

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to start transaction").WithError(err)
	}

	defer func() { _ = tx.Rollback() }()

	orderRepo := s.orderRepo.WithTx(tx)
	productRepo := s.productRepo.WithTx(tx)

	order, err := orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Order not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if order.UserID != userID {
		return nil, apperrors.ForbiddenError("You don't have permission to cancel this order")
	}

	if order.Status != models.OrderStatusPending {
		return nil, apperrors.StateError("Only pending orders can be cancelled")
	}

	for _, item := range order.Items {

		product, err := productRepo.GetProductForUpdate(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperrors.NotFoundError("Product no longer exists: " + item.ProductID.String()).WithError(err)
			}

			return nil, apperrors.DatabaseError("Failed to fetch product").WithError(err)
		}

		if err := productRepo.UpdateStock(ctx, product.ID, product.Quantity+item.Quantity, true); err != nil {
			return nil, apperrors.DatabaseError("Failed to restore inventory").WithError(err)
		}
	}

	if err := orderRepo.UpdateOrderStatus(ctx, orderID, models.OrderStatusCancelled); err != nil {
		return nil, apperrors.DatabaseError("Failed to update order status").WithError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.DatabaseError("Failed to commit cancellation").WithError(err)
	}

	s.invalidateProducts(ctx, order.Items)

	order.Status = models.OrderStatusCancelled

	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Order not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	return order, nil
}

func (s *orderService) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {

	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

func (s *orderService) ListAllOrders(ctx context.Context, page, size int) ([]models.Order, int, error) {

	orders, total, err := s.orderRepo.ListAllOrders(ctx, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

// UpdateOrderStatus accepts any member of the status enum. There is no
// transition graph beyond enum membership; in particular this endpoint does
// not restore stock when setting "cancelled" — stock reconciliation belongs
// to CancelOrder.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {

	if !models.ValidOrderStatus(status) {
		return nil, apperrors.ValidationError("Invalid order status: " + string(status))
	}

	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, apperrors.DatabaseError("Failed to update order status").WithError(err)
	}

	order.Status = status

	return order, nil
}

func validateAddress(addr *models.Address) error {

	missing := make([]string, 0, 4)

	if strings.TrimSpace(addr.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(addr.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(addr.Country) == "" {
		missing = append(missing, "country")
	}
	if strings.TrimSpace(addr.ZipCode) == "" {
		missing = append(missing, "zip_code")
	}

	if len(missing) > 0 {
		return apperrors.ValidationError("Missing shipping address fields: " + strings.Join(missing, ", "))
	}

	return nil
}

// invalidateProducts drops cached product entries whose stock just changed.
func (s *orderService) invalidateProducts(ctx context.Context, items []models.OrderItem) {

	if s.cache == nil {
		return
	}

	for _, item := range items {

		key := cache.Key(cache.ProductKeyPrefix, item.ProductID.String())

		if err := s.cache.Delete(ctx, key); err != nil {
			slog.Warn("Product cache invalidation failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// sendConfirmation emails the buyer after a committed order. Best effort:
// a mail failure is logged, never surfaced to the caller.
func (s *orderService) sendConfirmation(ctx context.Context, order *models.Order) {

	if s.emailer == nil {
		return
	}

	user, err := s.userRepo.GetUserByID(ctx, order.UserID)
	if err != nil {
		slog.Warn("Order confirmation skipped: user lookup failed",
			slog.String("orderId", order.ID.String()), slog.String("error", err.Error()))
		return
	}

	subject := fmt.Sprintf("Order confirmation %s", order.ID)
	body := fmt.Sprintf("Hi %s,\n\nyour order of %d item(s) totalling %.2f was placed successfully.\n",
		user.FirstName, len(order.Items), order.TotalAmount)

	if err := s.emailer.Send(ctx, user.Email, subject, body, ""); err != nil {
		slog.Warn("Order confirmation email failed",
			slog.String("orderId", order.ID.String()), slog.String("error", err.Error()))
	}
}
