package service

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/NIRoberto/ecommerce-api/internal/errors"
	"github.com/NIRoberto/ecommerce-api/internal/models"
	repository "github.com/NIRoberto/ecommerce-api/internal/repositories"
	"github.com/google/uuid"
)

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID uuid.UUID, req *models.UpdateCartItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	cart = &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Items:  []models.CartItem{},
	}

	if err := s.cartRepo.CreateCart(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to create cart").WithError(err)
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.Cart, error) {

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch product").WithError(err)
	}

	if !product.InStock {
		return nil, apperrors.StateError("Product is out of stock")
	}

	if product.Quantity < req.Quantity {
		return nil, apperrors.StateError("Insufficient stock for product: " + product.Name)
	}

	if idx := cart.FindItem(req.ProductID); idx >= 0 {
		// Same product twice merges into one line. The merged quantity has
		// to fit current stock; the original price snapshot is kept.
		merged := cart.Items[idx].Quantity + req.Quantity
		if merged > product.Quantity {
			return nil, apperrors.StateError("Insufficient stock for product: " + product.Name)
		}

		cart.Items[idx].Quantity = merged
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: product.ID,
			Quantity:  req.Quantity,
			Price:     product.Price,
		})
	}

	return s.save(ctx, cart)
}

func (s *cartService) UpdateItem(ctx context.Context, userID uuid.UUID, req *models.UpdateCartItemRequest) (*models.Cart, error) {

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(req.ProductID)
	if idx < 0 {
		return nil, apperrors.BadRequestError("Item not found in the cart")
	}

	if req.Quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return s.save(ctx, cart)
	}

	product, err := s.productRepo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, apperrors.DatabaseError("Failed to fetch product").WithError(err)
	}

	if !product.InStock || product.Quantity < req.Quantity {
		return nil, apperrors.StateError("Insufficient stock for product: " + product.Name)
	}

	// Quantity overwrites; the price snapshot from add time stays.
	cart.Items[idx].Quantity = req.Quantity

	return s.save(ctx, cart)
}

// RemoveItem drops the line for productID. Removing an absent line is not an
// error; the cart is simply returned as is.
func (s *cartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID) (*models.Cart, error) {

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return cart, nil
	}

	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	return s.save(ctx, cart)
}

func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Items = []models.CartItem{}

	return s.save(ctx, cart)
}

func (s *cartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {

	cart.RecalculateTotal()

	if err := s.cartRepo.UpdateCart(ctx, cart); err != nil {
		return nil, apperrors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart, nil
}
