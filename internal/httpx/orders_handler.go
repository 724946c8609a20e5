package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/topolina/flipbook-orders/internal/orders"
	"github.com/topolina/flipbook-orders/internal/redisx"
)

// OrderService is implemented by *orders.Service.
type OrderService interface {
	Submit(ctx context.Context, p orders.Payload, trace string) (string, error)
	List(ctx context.Context) ([]orders.Record, error)
	Status(ctx context.Context, id string) (orders.Status, error)
	SetStatus(ctx context.Context, id string, to orders.Status, trace string) error
	Replace(ctx context.Context, id string, data orders.Payload, trace string) error
	Delete(ctx context.Context, id string, trace string) error
}

type OrdersHandler struct {
	Orders OrderService
	Status *orders.StatusCache
	// Redis backs the Idempotency-Key header; nil disables it.
	Redis redis.Cmdable
	// Timeout bounds a submission once it has started. The client going away does
	// not cut it short.
	Timeout time.Duration
}

type submitResp struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// idemPending marks an Idempotency-Key whose first request is still running.
const idemPending = "pending"

func (h *OrdersHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/{id}", h.getStatus)
	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Get("/api/orders", h.listOrders)
		r.Put("/api/orders/{id}", h.updateOrder)
		r.Delete("/api/orders/{id}", h.deleteOrder)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var p orders.Payload
	if err := decodeJSON(w, r, &p); err != nil || p == nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
	defer cancel()
	trace := middleware.GetReqID(r.Context())

	idemKey := ""
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyIdemOrderCreate, k)
		won, err := redisx.Claim(ctx, h.Redis, key, idemPending, redisx.TTLIdempotency)
		switch {
		case err != nil:
			log.Printf("idempotency claim %s: %v", k, err)
		case won:
			idemKey = key
		default:
			id, _ := redisx.GetString(ctx, h.Redis, key)
			if id == "" || id == idemPending {
				fail(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress")
				return
			}
			writeJSON(w, http.StatusOK, submitResp{Success: true, OrderID: id})
			return
		}
	}

	id, err := h.Orders.Submit(ctx, p, trace)
	if err != nil {
		if idemKey != "" {
			_ = h.Redis.Del(ctx, idemKey).Err()
		}
		h.submitError(w, r, err)
		return
	}
	if idemKey != "" {
		if err := h.Redis.Set(ctx, idemKey, id, redisx.TTLIdempotency).Err(); err != nil {
			log.Printf("idempotency store %s: %v", id, err)
		}
	}
	h.Status.Put(ctx, orders.StatusView{OrderID: id, Status: orders.StatusPending, UpdatedAt: time.Now().UTC()})
	writeJSON(w, http.StatusOK, submitResp{Success: true, OrderID: id})
}

func (h *OrdersHandler) submitError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		insufficient *orders.InsufficientStockError
		unknown      *orders.UnknownLinesError
	)
	switch {
	case errors.As(err, &insufficient):
		fail(w, http.StatusConflict, err.Error())
	case errors.As(err, &unknown):
		fail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, orders.ErrInvalidPayload):
		fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrStockConflict):
		log.Printf("order stock conflict [%s]: %v", middleware.GetReqID(r.Context()), err)
		fail(w, http.StatusConflict, orders.ErrStockConflict.Error())
	case errors.Is(err, orders.ErrContention):
		log.Printf("order contention [%s]: %v", middleware.GetReqID(r.Context()), err)
		fail(w, http.StatusServiceUnavailable, orders.ErrContention.Error())
	default:
		internalError(w, r, "Failed to create order", err)
	}
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if v, ok := h.Status.Get(r.Context(), id); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}
	st, err := h.Orders.Status(r.Context(), id)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Order not found"})
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load order", err)
		return
	}
	v := orders.StatusView{OrderID: id, Status: st, UpdatedAt: time.Now().UTC()}
	h.Status.Put(r.Context(), v)
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Orders.List(r.Context())
	if err != nil {
		internalError(w, r, "Failed to load orders", err)
		return
	}
	out := make([]orders.Payload, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Document())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	var req struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	var data orders.Payload
	if len(req.Data) > 0 && string(req.Data) != "null" {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			fail(w, http.StatusBadRequest, "data must be an object")
			return
		}
	}
	if req.Status == "" && data == nil {
		fail(w, http.StatusBadRequest, "nothing to update")
		return
	}
	trace := middleware.GetReqID(r.Context())

	if req.Status != "" {
		st, err := orders.ParseStatus(req.Status)
		if err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.Orders.SetStatus(r.Context(), id, st, trace); err != nil {
			h.adminError(w, r, err)
			return
		}
	}
	if data != nil {
		if err := h.Orders.Replace(r.Context(), id, data, trace); err != nil {
			h.adminError(w, r, err)
			return
		}
	}
	h.Status.Drop(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if err := h.Orders.Delete(r.Context(), id, middleware.GetReqID(r.Context())); err != nil {
		h.adminError(w, r, err)
		return
	}
	h.Status.Drop(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *OrdersHandler) adminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Order not found"})
	case errors.Is(err, orders.ErrInvalidStatus):
		fail(w, http.StatusBadRequest, err.Error())
	default:
		internalError(w, r, "Failed to update order", err)
	}
}
