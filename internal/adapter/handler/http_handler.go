package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

const SessionHeader = "X-Session-ID"

const maxBodySize = 1 << 20

type HTTPHandler struct {
	cart     *service.CartStore
	sessions *service.SessionRegistry
	slot     port.SlotRepository
	log      *zap.Logger
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ProductsResponse struct {
	Products    []domain.Product `json:"products"`
	HasNextPage bool             `json:"has_next_page"`
}

type LoadMoreResponse struct {
	Added       int  `json:"added"`
	HasNextPage bool `json:"has_next_page"`
}

type SelectionResponse struct {
	Product domain.Product `json:"product"`
	Prompt  string         `json:"prompt"`
}

type CartResponse struct {
	Entries []domain.CartEntry `json:"entries"`
	Count   int                `json:"count"`
}

type RemoveResponse struct {
	Removed int `json:"removed"`
	CartResponse
}

func NewHTTPHandler(cart *service.CartStore, sessions *service.SessionRegistry, slot port.SlotRepository, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{
		cart:     cart,
		sessions: sessions,
		slot:     slot,
		log:      log.Named("http"),
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.slot.Ping(r.Context()); err != nil {
		h.log.Warn("slot backend unhealthy", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	listing := h.listing(w, r)

	if err := listing.EnsureLoaded(r.Context()); err != nil {
		h.catalogError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProductsResponse{
		Products:    listing.Products(r.URL.Query().Get("q")),
		HasNextPage: listing.HasNextPage(),
	})
}

func (h *HTTPHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	listing := h.listing(w, r)

	added, err := listing.LoadMore(r.Context())
	if err != nil {
		h.catalogError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoadMoreResponse{
		Added:       added,
		HasNextPage: listing.HasNextPage(),
	})
}

func (h *HTTPHandler) SelectProduct(w http.ResponseWriter, r *http.Request) {
	listing := h.listing(w, r)

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	product, err := listing.Select(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Message: "product not found"})
		return
	}

	writeJSON(w, http.StatusOK, SelectionResponse{
		Product: product,
		Prompt:  "Add " + product.Title + " to cart?",
	})
}

func (h *HTTPHandler) ConfirmSelection(w http.ResponseWriter, r *http.Request) {
	listing := h.listing(w, r)

	entry, err := listing.Confirm(r.Context())
	if err != nil {
		h.cartError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: entry.Title + " added to cart",
	})
}

func (h *HTTPHandler) DismissSelection(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r).Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Initialize(r.Context())
	writeJSON(w, http.StatusOK, cartResponse(h.cart.Entries()))
}

func (h *HTTPHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var entry domain.CartEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid request body"})
		return
	}

	entries, err := h.cart.AddEntrySnapshot(r.Context(), entry)
	if err != nil {
		h.cartError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, cartResponse(entries))
}

func (h *HTTPHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	entries, removed, err := h.cart.RemoveEntrySnapshot(r.Context(), id)
	if err != nil {
		h.cartError(w, err)
		return
	}
	if removed == 0 {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Message: "entry not in cart"})
		return
	}

	writeJSON(w, http.StatusOK, RemoveResponse{
		Removed:      removed,
		CartResponse: cartResponse(entries),
	})
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		h.cartError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listing resolves the caller's session and echoes its id back.
func (h *HTTPHandler) listing(w http.ResponseWriter, r *http.Request) *service.Listing {
	listing, id := h.sessions.Get(r.Header.Get(SessionHeader))
	w.Header().Set(SessionHeader, id)
	return listing
}

func (h *HTTPHandler) catalogError(w http.ResponseWriter, err error) {
	h.log.Error("catalog request failed", zap.Error(err))
	writeJSON(w, http.StatusBadGateway, Response{
		Success: false,
		Message: "products are unavailable right now",
	})
}

func (h *HTTPHandler) cartError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidEntry):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrNoSelection):
		status = http.StatusConflict
		message = "no product selected"
	default:
		h.log.Error("cart update failed", zap.Error(err))
	}

	writeJSON(w, status, Response{Success: false, Message: message})
}

func cartResponse(entries []domain.CartEntry) CartResponse {
	return CartResponse{Entries: entries, Count: len(entries)}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
