package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/port"
	"github.com/niksmo/consumershop/internal/core/service"
	"github.com/niksmo/consumershop/pkg/ether"
)

// GET v1/account (200 OK)
// GET v1/products (200 OK)
// GET v1/products/{index} (200 OK, 400 Bad request, 404 Not found)
// POST v1/products JSON NewProduct (201 Created, 400 Bad request, 409 Conflict)
// POST v1/products/{index}/buy (200 OK, 400 Bad request, 404 Not found, 409 Conflict)
// POST v1/products/sync (200 OK)
//
// Writes answer 503 Service unavailable when the dashboard has no wallet.

type ProductsHandler struct {
	shop         port.Shop
	defaultImage string
}

type HandlerOpt func(*ProductsHandler)

// DefaultImageOpt sets the image rendered for products created without one.
func DefaultImageOpt(image string) HandlerOpt {
	return func(h *ProductsHandler) {
		h.defaultImage = image
	}
}

func RegisterProducts(mux *http.ServeMux, shop port.Shop, opts ...HandlerOpt) {
	h := ProductsHandler{shop: shop}
	for _, opt := range opts {
		opt(&h)
	}
	mux.HandleFunc("GET /v1/account", h.GetAccount)
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("GET /v1/products/{index}", h.GetProduct)
	mux.HandleFunc("POST /v1/products", h.PostProduct)
	mux.HandleFunc("POST /v1/products/{index}/buy", h.BuyProduct)
	mux.HandleFunc("POST /v1/products/sync", h.SyncProducts)
}

func (h ProductsHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetAccount"
	log := slog.With("op", op)

	writeJSON(log, w, http.StatusOK, Account{h.shop.Account(r.Context())})
}

func (h ProductsHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProducts"
	log := slog.With("op", op)

	ps, err := h.shop.ListProducts(r.Context())
	if err != nil {
		h.writeErr(log, w, err)
		return
	}

	writeJSON(log, w, http.StatusOK, h.fromDomainProducts(ps))
}

func (h ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProduct"
	log := slog.With("op", op)

	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	p, err := h.shop.GetProduct(r.Context(), index)
	if err != nil {
		h.writeErr(log, w, err)
		return
	}

	writeJSON(log, w, http.StatusOK, h.fromDomainProduct(p))
}

func (h ProductsHandler) PostProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostProduct"
	log := slog.With("op", op)

	var v NewProduct
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	price, err := ether.ParseEther(v.Price)
	if err != nil {
		http.Error(w, "invalid price", http.StatusBadRequest)
		log.Warn("failed to parse price", "err", err)
		return
	}

	receipt, err := h.shop.CreateProduct(r.Context(), domain.NewProduct{
		SKU:               v.SKU,
		Name:              v.Name,
		Image:             v.Image,
		Description:       v.Description,
		Price:             price,
		QuantityAvailable: v.QuantityAvailable,
	})
	if err != nil {
		h.writeErr(log, w, err)
		return
	}

	log.Info("product created", "sku", v.SKU, "tx", receipt.TxHash)
	writeJSON(log, w, http.StatusCreated, fromDomainReceipt(receipt))
}

func (h ProductsHandler) BuyProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.BuyProduct"
	log := slog.With("op", op)

	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	receipt, err := h.shop.BuyProduct(r.Context(), index)
	if err != nil {
		h.writeErr(log, w, err)
		return
	}

	log.Info("product bought", "index", index, "tx", receipt.TxHash)
	writeJSON(log, w, http.StatusOK, fromDomainReceipt(receipt))
}

func (h ProductsHandler) SyncProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.SyncProducts"
	log := slog.With("op", op)

	head, err := h.shop.SyncProducts(r.Context())
	if err != nil {
		h.writeErr(log, w, err)
		return
	}

	ps, err := h.shop.ListProducts(r.Context())
	if err != nil {
		h.writeErr(log, w, err)
		return
	}

	writeJSON(log, w, http.StatusOK, SyncResult{Head: head, Products: len(ps)})
}

func (h ProductsHandler) writeErr(
	log *slog.Logger, w http.ResponseWriter, err error,
) {
	switch {
	case errors.Is(err, service.ErrInvalidProduct):
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Warn("invalid product", "err", err)
	case errors.Is(err, service.ErrProductNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
		log.Warn("product not found", "err", err)
	case errors.Is(err, domain.ErrTxReverted):
		http.Error(w, err.Error(), http.StatusConflict)
		log.Warn("transaction reverted", "err", err)
	case errors.Is(err, domain.ErrNoWallet):
		http.Error(w, "dashboard is read only: wallet is not configured",
			http.StatusServiceUnavailable)
		log.Warn("write rejected", "err", err)
	default:
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		log.Error("request failed", "err", err)
	}
}

func pathIndex(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}
