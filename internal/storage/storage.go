package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/drstein77/storefront/internal/cart"
	"github.com/drstein77/storefront/internal/catalog"
	"github.com/drstein77/storefront/internal/exporter"
	"github.com/drstein77/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Keeper persists carts and the products snapshot between runs.
type Keeper interface {
	SaveCart(context.Context, models.CartView) error
	LoadCart(context.Context, string) (models.CartView, bool, error)
	DeleteCart(context.Context, string) error
	SaveProducts(context.Context, []models.Product, time.Time) error
	LoadProducts(context.Context) ([]models.Product, time.Time, error)
	Ping(context.Context) bool
	Close() bool
}

// MemoryStorage owns the products store and the per-session carts.
// Every mutation is written through to the keeper; keeper failures are logged
// and never roll back the in-memory state.
type MemoryStorage struct {
	mx sync.RWMutex
	// serializes checkouts so a cart is never ordered twice
	checkoutMx sync.Mutex

	products *catalog.Store
	carts    map[string]*cart.Cart

	keeper Keeper
	log    Log
	now    func() time.Time
}

// NewMemoryStorage creates a MemoryStorage and restores the products snapshot from keeper when there is one.
func NewMemoryStorage(ctx context.Context, products *catalog.Store, keeper Keeper, log Log) *MemoryStorage {
	s := &MemoryStorage{
		products: products,
		carts:    make(map[string]*cart.Cart),
		keeper:   keeper,
		log:      log,
		now:      time.Now,
	}

	if keeper != nil {
		snapshot, fetchedAt, err := keeper.LoadProducts(ctx)
		if err != nil {
			log.Error("cannot load products snapshot", zap.Error(err))
		} else if len(snapshot) > 0 {
			products.Replace(snapshot, fetchedAt)
			log.Info("products snapshot restored", zap.Int("count", len(snapshot)))
		}
	}

	return s
}

// FetchProducts refreshes the catalog from upstream and persists the new snapshot.
func (s *MemoryStorage) FetchProducts(ctx context.Context, force bool) error {
	before := s.products.State().FetchedAt
	if err := s.products.Fetch(ctx, force); err != nil {
		return err
	}
	if st := s.products.State(); !st.FetchedAt.Equal(before) {
		s.saveProducts(ctx, st.Products, st.FetchedAt)
	}
	return nil
}

func (s *MemoryStorage) ProductsState() models.ProductsState {
	return s.products.State()
}

func (s *MemoryStorage) Products() []models.Product {
	return s.products.Products()
}

func (s *MemoryStorage) ClearProductsError() {
	s.products.ClearError()
}

// UpdateProduct replaces a cached product by id.
func (s *MemoryStorage) UpdateProduct(ctx context.Context, p models.Product) error {
	if !s.products.UpdateProduct(p) {
		return fmt.Errorf("product %d: %w", p.ID, ErrNotFound)
	}
	st := s.products.State()
	s.saveProducts(ctx, st.Products, st.FetchedAt)
	return nil
}

// ImportProducts replaces the catalog with the products read from a CSV stream.
func (s *MemoryStorage) ImportProducts(ctx context.Context, r io.Reader) (*models.ImportResponse, error) {
	products, err := exporter.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	fetchedAt := s.now()
	s.products.Replace(products, fetchedAt)
	s.saveProducts(ctx, products, fetchedAt)

	resp := &models.ImportResponse{TotalPrice: decimal.Zero}
	categories := make(map[string]struct{})
	for _, p := range products {
		resp.TotalItems++
		resp.TotalStock += p.Stock
		resp.TotalPrice = resp.TotalPrice.Add(p.Price)
		categories[p.Category] = struct{}{}
	}
	resp.TotalCategories = len(categories)

	s.log.Info("products imported", zap.Int("count", resp.TotalItems))
	return resp, nil
}

// GetCart returns the cart of a session. Unknown sessions get an empty cart.
func (s *MemoryStorage) GetCart(ctx context.Context, sessionID string) models.CartView {
	return s.cart(ctx, sessionID).View()
}

// AddToCart adds qty units of the catalog product productID to the session cart.
func (s *MemoryStorage) AddToCart(ctx context.Context, sessionID string, productID, qty int) (models.CartView, error) {
	if qty < 0 {
		return models.CartView{}, ErrInvalidQuantity
	}
	p, ok := s.products.Product(productID)
	if !ok {
		return models.CartView{}, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	c := s.cart(ctx, sessionID)
	if err := c.Add(p, qty); err != nil {
		return models.CartView{}, err
	}
	return s.saveCart(ctx, c), nil
}

// RemoveFromCart drops the line of productID from the session cart.
func (s *MemoryStorage) RemoveFromCart(ctx context.Context, sessionID string, productID int) (models.CartView, error) {
	c := s.cart(ctx, sessionID)
	if !c.Remove(productID) {
		return c.View(), fmt.Errorf("cart line %d: %w", productID, ErrNotFound)
	}
	return s.saveCart(ctx, c), nil
}

// SetCartQuantity overwrites the quantity of a line; zero removes it.
func (s *MemoryStorage) SetCartQuantity(ctx context.Context, sessionID string, productID, qty int) (models.CartView, error) {
	if qty < 0 {
		return models.CartView{}, ErrInvalidQuantity
	}
	c := s.cart(ctx, sessionID)
	if !c.SetQuantity(productID, qty) {
		return c.View(), fmt.Errorf("cart line %d: %w", productID, ErrNotFound)
	}
	return s.saveCart(ctx, c), nil
}

func (s *MemoryStorage) ClearCart(ctx context.Context, sessionID string) models.CartView {
	c := s.cart(ctx, sessionID)
	c.Clear()
	s.deleteCart(ctx, sessionID)
	return c.View()
}

// Checkout decrements stock for every line of the session cart, then empties the cart.
// Nothing changes when any product lacks stock. Lines added while the order is placed stay in the cart.
func (s *MemoryStorage) Checkout(ctx context.Context, sessionID string) (*models.Order, error) {
	s.checkoutMx.Lock()
	defer s.checkoutMx.Unlock()

	c := s.cart(ctx, sessionID)
	view := c.Take()
	if len(view.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	if err := s.products.DecrementAll(view.Lines); err != nil {
		c.PutBack(view.Lines)
		s.saveCart(ctx, c)
		return nil, err
	}

	st := s.products.State()
	s.saveProducts(ctx, st.Products, st.FetchedAt)
	if c.Count() == 0 {
		s.deleteCart(ctx, sessionID)
	} else {
		s.saveCart(ctx, c)
	}

	order := &models.Order{
		ID:         uuid.NewString(),
		Lines:      view.Lines,
		TotalItems: view.Items,
		Total:      view.Total,
		CreatedAt:  s.now(),
	}
	s.log.Info("order placed",
		zap.String("order", order.ID),
		zap.String("cart", sessionID),
		zap.Int("items", order.TotalItems),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

// Ping reports whether the keeper is reachable. Without a keeper the storage is memory-only and always healthy.
func (s *MemoryStorage) Ping(ctx context.Context) bool {
	if s.keeper == nil {
		return true
	}
	return s.keeper.Ping(ctx)
}

// Close releases the keeper.
func (s *MemoryStorage) Close() {
	if s.keeper != nil {
		s.keeper.Close()
	}
}

// cart returns the cached cart of sessionID, loading it from the keeper on first access.
func (s *MemoryStorage) cart(ctx context.Context, sessionID string) *cart.Cart {
	s.mx.RLock()
	c, ok := s.carts[sessionID]
	s.mx.RUnlock()
	if ok {
		return c
	}

	c = cart.New(sessionID)
	if s.keeper != nil {
		view, found, err := s.keeper.LoadCart(ctx, sessionID)
		if err != nil {
			s.log.Error("cannot load cart", zap.String("cart", sessionID), zap.Error(err))
		} else if found {
			c = cart.Restore(view)
		}
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	if existing, ok := s.carts[sessionID]; ok {
		return existing
	}
	s.carts[sessionID] = c
	return c
}

func (s *MemoryStorage) saveCart(ctx context.Context, c *cart.Cart) models.CartView {
	view := c.View()
	if s.keeper == nil {
		return view
	}
	if err := s.keeper.SaveCart(ctx, view); err != nil {
		s.log.Error("cannot save cart", zap.String("cart", view.ID), zap.Error(err))
	}
	return view
}

func (s *MemoryStorage) deleteCart(ctx context.Context, sessionID string) {
	if s.keeper == nil {
		return
	}
	if err := s.keeper.DeleteCart(ctx, sessionID); err != nil {
		s.log.Error("cannot delete cart", zap.String("cart", sessionID), zap.Error(err))
	}
}

func (s *MemoryStorage) saveProducts(ctx context.Context, products []models.Product, fetchedAt time.Time) {
	if s.keeper == nil {
		return
	}
	if err := s.keeper.SaveProducts(ctx, products, fetchedAt); err != nil {
		s.log.Error("cannot save products snapshot", zap.Error(err))
	}
}
