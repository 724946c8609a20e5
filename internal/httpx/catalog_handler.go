package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/topolina/flipbook-orders/internal/catalog"
)

// CatalogService is implemented by *catalog.Service.
type CatalogService interface {
	ProductsJSON(ctx context.Context) ([]byte, error)
	SaveProducts(ctx context.Context, c catalog.Catalog) error
	Fabrics(ctx context.Context) ([]catalog.Fabric, error)
	CreateFabric(ctx context.Context, name string, meters decimal.Decimal) (catalog.Fabric, error)
	UpdateFabric(ctx context.Context, id, name string, meters decimal.Decimal) error
	DeleteFabric(ctx context.Context, id string) error
	LinkPattern(ctx context.Context, productID, patternID, fabricID string) error
	UnlinkPattern(ctx context.Context, productID, patternID string) error
}

type CatalogHandler struct {
	Catalog CatalogService
}

type fabricReq struct {
	Name            string          `json:"name"`
	AvailableMeters decimal.Decimal `json:"availableMeters"`
}

func (h *CatalogHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/api/products", h.listProducts)
	r.Get("/api/fabrics", h.listFabrics)
	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Post("/api/products", h.saveProducts)
		r.Post("/api/fabrics", h.createFabric)
		r.Put("/api/fabrics/{id}", h.updateFabric)
		r.Delete("/api/fabrics/{id}", h.deleteFabric)
		r.Post("/api/products/{productId}/patterns/{patternId}/fabric", h.linkPattern)
		r.Delete("/api/products/{productId}/patterns/{patternId}/fabric", h.unlinkPattern)
	})
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	b, err := h.Catalog.ProductsJSON(r.Context())
	if err != nil {
		internalError(w, r, "Database error", err)
		return
	}
	writeRaw(w, http.StatusOK, b)
}

func (h *CatalogHandler) saveProducts(w http.ResponseWriter, r *http.Request) {
	var c catalog.Catalog
	if err := decodeJSON(w, r, &c); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Catalog.SaveProducts(r.Context(), c); err != nil {
		h.catalogError(w, r, "Failed to save products", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) listFabrics(w http.ResponseWriter, r *http.Request) {
	fs, err := h.Catalog.Fabrics(r.Context())
	if err != nil {
		internalError(w, r, "Failed to load fabrics", err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (h *CatalogHandler) createFabric(w http.ResponseWriter, r *http.Request) {
	var req fabricReq
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	f, err := h.Catalog.CreateFabric(r.Context(), req.Name, req.AvailableMeters)
	if err != nil {
		h.catalogError(w, r, "Failed to create fabric", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": f.ID})
}

func (h *CatalogHandler) updateFabric(w http.ResponseWriter, r *http.Request) {
	var req fabricReq
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.Catalog.UpdateFabric(r.Context(), param(r, "id"), req.Name, req.AvailableMeters); err != nil {
		h.catalogError(w, r, "Failed to update fabric", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) deleteFabric(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteFabric(r.Context(), param(r, "id")); err != nil {
		h.catalogError(w, r, "Failed to delete fabric", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) linkPattern(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FabricID string `json:"fabricId"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.FabricID == "" {
		fail(w, http.StatusBadRequest, "fabricId is required")
		return
	}
	err := h.Catalog.LinkPattern(r.Context(), param(r, "productId"), param(r, "patternId"), req.FabricID)
	if err != nil {
		h.catalogError(w, r, "Failed to link pattern", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) unlinkPattern(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.UnlinkPattern(r.Context(), param(r, "productId"), param(r, "patternId")); err != nil {
		h.catalogError(w, r, "Failed to unlink pattern", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) catalogError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalid):
		fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		fail(w, http.StatusNotFound, err.Error())
	default:
		internalError(w, r, msg, err)
	}
}
