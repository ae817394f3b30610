package controllers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/drstein77/storefront/internal/catalog"
	"github.com/drstein77/storefront/internal/middleware"
	"github.com/drstein77/storefront/internal/models"
	"github.com/drstein77/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
}).ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Title    string
	Cart     models.CartView
	Products models.ProductsState
	Error    string
	OrderID  string
}

func (h *BaseController) productsPage(w http.ResponseWriter, r *http.Request) {
	// the page shows the fetch error itself
	_ = h.storage.FetchProducts(h.ctx, false)

	h.render(w, http.StatusOK, "products.html", pageData{
		Title:    "Products",
		Cart:     h.storage.GetCart(r.Context(), middleware.SessionID(r.Context())),
		Products: h.storage.ProductsState(),
	})
}

func (h *BaseController) cartPage(w http.ResponseWriter, r *http.Request) {
	h.renderCart(w, r, http.StatusOK, "", r.URL.Query().Get("order"))
}

func (h *BaseController) renderCart(w http.ResponseWriter, r *http.Request, status int, errMsg, orderID string) {
	h.render(w, status, "cart.html", pageData{
		Title:   "Cart",
		Cart:    h.storage.GetCart(r.Context(), middleware.SessionID(r.Context())),
		Error:   errMsg,
		OrderID: orderID,
	})
}

func (h *BaseController) addForm(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(r.PostFormValue("product_id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	qty := 1
	if v := r.PostFormValue("quantity"); v != "" {
		if qty, err = strconv.Atoi(v); err != nil || qty < 1 {
			http.Error(w, "invalid quantity", http.StatusBadRequest)
			return
		}
	}

	if _, err := h.storage.AddToCart(r.Context(), middleware.SessionID(r.Context()), productID, qty); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *BaseController) removeForm(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(r.PostFormValue("product_id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	// removing a line that is already gone leaves the cart as the user wanted it
	h.storage.RemoveFromCart(r.Context(), middleware.SessionID(r.Context()), productID)
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (h *BaseController) checkoutForm(w http.ResponseWriter, r *http.Request) {
	order, err := h.storage.Checkout(r.Context(), middleware.SessionID(r.Context()))
	switch {
	case err == nil:
		http.Redirect(w, r, "/cart?order="+order.ID, http.StatusSeeOther)
	case errors.Is(err, catalog.ErrInsufficientStock), errors.Is(err, catalog.ErrNotFound):
		h.renderCart(w, r, http.StatusConflict, "Cannot place the order: "+err.Error(), "")
	case errors.Is(err, storage.ErrEmptyCart):
		h.renderCart(w, r, http.StatusBadRequest, "Your cart is empty.", "")
	default:
		h.log.Error("checkout failed", zap.Error(err))
		h.renderCart(w, r, http.StatusInternalServerError, "Cannot place the order.", "")
	}
}

func (h *BaseController) dismissErrorForm(w http.ResponseWriter, r *http.Request) {
	h.storage.ClearProductsError()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *BaseController) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("Failed to render page", zap.String("page", name), zap.Error(err))
	}
}
