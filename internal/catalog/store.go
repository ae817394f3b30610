package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/drstein77/storefront/internal/models"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// fallbackFetchError is shown when the upstream failure carries no message.
const fallbackFetchError = "Failed to fetch products"

// Fetcher loads the full product list from an upstream source.
type Fetcher interface {
	FetchProducts(context.Context) ([]models.Product, error)
}

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Store caches the product list together with the loading flag and the last fetch error.
type Store struct {
	mx sync.RWMutex

	products  []models.Product
	loading   bool
	errMsg    string
	fetchedAt time.Time

	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	log     Log
}

// NewStore creates an empty Store. A zero ttl disables caching: every Fetch hits the fetcher.
func NewStore(fetcher Fetcher, ttl time.Duration, log Log) *Store {
	return &Store{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}
}

// Fetch refreshes the product list. Unless force is set, a list younger than the ttl is kept.
// A call made while another fetch is in flight returns immediately.
// On failure the previous list is kept and the error message is recorded for display.
func (s *Store) Fetch(ctx context.Context, force bool) error {
	s.mx.Lock()
	if s.loading {
		s.mx.Unlock()
		return nil
	}
	if !force && s.fresh() {
		s.mx.Unlock()
		return nil
	}
	s.loading = true
	s.errMsg = ""
	s.mx.Unlock()

	products, err := s.fetcher.FetchProducts(ctx)

	s.mx.Lock()
	defer s.mx.Unlock()
	s.loading = false

	if err != nil {
		s.errMsg = err.Error()
		if s.errMsg == "" {
			s.errMsg = fallbackFetchError
		}
		s.log.Error("Error fetching products", zap.Error(err))
		return fmt.Errorf("fetch products: %w", err)
	}

	s.products = products
	s.fetchedAt = s.now()
	s.log.Info("Products fetched", zap.Int("count", len(products)))
	return nil
}

func (s *Store) fresh() bool {
	if s.ttl <= 0 || s.fetchedAt.IsZero() {
		return false
	}
	return s.now().Sub(s.fetchedAt) < s.ttl
}

// Products returns a copy of the cached list.
func (s *Store) Products() []models.Product {
	s.mx.RLock()
	defer s.mx.RUnlock()

	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

// State returns the list, loading flag and error message in one consistent read.
func (s *Store) State() models.ProductsState {
	s.mx.RLock()
	defer s.mx.RUnlock()

	products := make([]models.Product, len(s.products))
	copy(products, s.products)
	return models.ProductsState{
		Products:  products,
		Loading:   s.loading,
		Error:     s.errMsg,
		FetchedAt: s.fetchedAt,
	}
}

func (s *Store) Loading() bool {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.loading
}

// Err returns the message of the last failed fetch, or "" if none is pending.
func (s *Store) Err() string {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.errMsg
}

func (s *Store) ClearError() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.errMsg = ""
}

// Product looks a product up by id.
func (s *Store) Product(id int) (models.Product, bool) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	if i := s.index(id); i >= 0 {
		return s.products[i], true
	}
	return models.Product{}, false
}

// UpdateProduct replaces the product carrying the same id. Unknown ids are ignored.
func (s *Store) UpdateProduct(p models.Product) bool {
	s.mx.Lock()
	defer s.mx.Unlock()

	i := s.index(p.ID)
	if i < 0 {
		return false
	}
	s.products[i] = p
	return true
}

// Replace swaps the whole list, e.g. after restoring a snapshot or importing an archive.
func (s *Store) Replace(products []models.Product, fetchedAt time.Time) {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.products = append([]models.Product(nil), products...)
	s.fetchedAt = fetchedAt
}

// DecrementStock removes qty units from the product's stock. Stock never goes below zero.
func (s *Store) DecrementStock(id, qty int) (models.Product, error) {
	if qty <= 0 {
		return models.Product{}, ErrInvalidQuantity
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if s.products[i].Stock < qty {
		return models.Product{}, fmt.Errorf("product %d: %w", id, ErrInsufficientStock)
	}
	s.products[i].Stock -= qty
	return s.products[i], nil
}

// DecrementAll applies the stock decrement of every line or of none.
func (s *Store) DecrementAll(lines []models.CartLine) error {
	want := make(map[int]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("product %d: %w", l.Product.ID, ErrInvalidQuantity)
		}
		want[l.Product.ID] += l.Quantity
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	for id, qty := range want {
		i := s.index(id)
		if i < 0 {
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		if s.products[i].Stock < qty {
			return fmt.Errorf("product %d: %w", id, ErrInsufficientStock)
		}
	}

	for id, qty := range want {
		s.products[s.index(id)].Stock -= qty
	}
	return nil
}

func (s *Store) index(id int) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}
