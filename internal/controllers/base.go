package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/drstein77/storefront/internal/cart"
	"github.com/drstein77/storefront/internal/catalog"
	"github.com/drstein77/storefront/internal/middleware"
	"github.com/drstein77/storefront/internal/models"
	"github.com/drstein77/storefront/internal/storage"
	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

// Storage interface for catalog and cart operations
type Storage interface {
	FetchProducts(ctx context.Context, force bool) error
	ProductsState() models.ProductsState
	Products() []models.Product
	ClearProductsError()
	UpdateProduct(ctx context.Context, p models.Product) error
	ImportProducts(ctx context.Context, r io.Reader) (*models.ImportResponse, error)

	GetCart(ctx context.Context, sessionID string) models.CartView
	AddToCart(ctx context.Context, sessionID string, productID, qty int) (models.CartView, error)
	RemoveFromCart(ctx context.Context, sessionID string, productID int) (models.CartView, error)
	SetCartQuantity(ctx context.Context, sessionID string, productID, qty int) (models.CartView, error)
	ClearCart(ctx context.Context, sessionID string) models.CartView
	Checkout(ctx context.Context, sessionID string) (*models.Order, error)

	Ping(ctx context.Context) bool
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController serves the storefront pages and the JSON API.
type BaseController struct {
	ctx     context.Context
	storage Storage
	log     Log
}

// NewBaseController creates a new BaseController instance.
// ctx bounds the upstream product fetches so a client hanging up does not abort them.
func NewBaseController(ctx context.Context, storage Storage, log Log) *BaseController {
	instance := &BaseController{
		ctx:     ctx,
		storage: storage,
		log:     log,
	}

	return instance
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Session)

	// pages
	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5, "text/html"))
		r.Get("/", h.productsPage)
		r.Get("/cart", h.cartPage)
	})
	r.Post("/cart/add", h.addForm)
	r.Post("/cart/remove", h.removeForm)
	r.Post("/checkout", h.checkoutForm)
	r.Post("/products/dismiss-error", h.dismissErrorForm)

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/ping", h.ping)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5, "application/json", "text/csv"))
			r.Get("/products", h.getProducts)
			r.Get("/products/export", h.exportProducts)
		})
		r.Post("/products/refresh", h.refreshProducts)
		r.Delete("/products/error", h.clearProductsError)
		r.Put("/products/{id}", h.putProduct)
		r.With(middleware.ArchiveTypeMiddleware).Post("/products/import", h.importProducts)

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/items", h.postCartItem)
		r.Put("/cart/items/{id}", h.putCartItem)
		r.Delete("/cart/items/{id}", h.deleteCartItem)

		r.Post("/orders", h.postOrder)
	})

	return r
}

type cartItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

func (h *BaseController) getProducts(w http.ResponseWriter, r *http.Request) {
	// a failed fetch is reported through the state's error field
	_ = h.storage.FetchProducts(h.ctx, false)
	writeJSON(w, http.StatusOK, h.storage.ProductsState())
}

func (h *BaseController) refreshProducts(w http.ResponseWriter, r *http.Request) {
	force := true
	if v := r.URL.Query().Get("force"); v != "" {
		force, _ = strconv.ParseBool(v)
	}

	status := http.StatusOK
	if err := h.storage.FetchProducts(h.ctx, force); err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, h.storage.ProductsState())
}

func (h *BaseController) clearProductsError(w http.ResponseWriter, r *http.Request) {
	h.storage.ClearProductsError()
	w.WriteHeader(http.StatusNoContent)
}

func (h *BaseController) putProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid product: "+err.Error())
		return
	}
	if p.ID != 0 && p.ID != id {
		writeError(w, http.StatusBadRequest, "product id does not match the path")
		return
	}
	if p.Stock < 0 {
		writeError(w, http.StatusBadRequest, "stock cannot be negative")
		return
	}
	p.ID = id

	if err := h.storage.UpdateProduct(r.Context(), p); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *BaseController) importProducts(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	response, err := h.storage.ImportProducts(r.Context(), r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to import products: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *BaseController) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.GetCart(r.Context(), middleware.SessionID(r.Context())))
}

func (h *BaseController) clearCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.ClearCart(r.Context(), middleware.SessionID(r.Context())))
}

func (h *BaseController) postCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart item: "+err.Error())
		return
	}

	view, err := h.storage.AddToCart(r.Context(), middleware.SessionID(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *BaseController) putCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart item: "+err.Error())
		return
	}

	view, err := h.storage.SetCartQuantity(r.Context(), middleware.SessionID(r.Context()), id, req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *BaseController) deleteCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	view, err := h.storage.RemoveFromCart(r.Context(), middleware.SessionID(r.Context()), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *BaseController) postOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.storage.Checkout(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *BaseController) ping(w http.ResponseWriter, r *http.Request) {
	if !h.storage.Ping(r.Context()) {
		writeError(w, http.StatusInternalServerError, "storage is unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// fail maps domain errors to HTTP statuses.
func (h *BaseController) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, storage.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidQuantity), errors.Is(err, storage.ErrEmptyCart):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
