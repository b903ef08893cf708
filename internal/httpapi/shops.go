package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/goliatone/go-market-gate/internal/model"
	"github.com/goliatone/go-market-gate/internal/storage"
)

// ShopService is the shop storage the handlers drive. Writes fire the shop
// lifecycle events.
type ShopService interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Shop, error)
	List(ctx context.Context) ([]*model.Shop, int, error)
	Create(ctx context.Context, shop *model.Shop) (*model.Shop, error)
	Update(ctx context.Context, id uuid.UUID, patch storage.ShopUpdate) (*model.Shop, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Shop, error)
	Restore(ctx context.Context, id uuid.UUID) (*model.Shop, error)
}

type shopRequest struct {
	SellerID uuid.UUID `json:"seller_id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Status   string    `json:"status"`
}

// handleListShops handles GET /shops.
func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, total, err := s.shops.List(r.Context())
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Status:  true,
		Message: "success",
		Data:    shops,
		Meta:    map[string]int{"total": total},
	})
}

// handleGetShop handles GET /shops/{id}.
func (s *Server) handleGetShop(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	shop, err := s.shops.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "success", shop)
}

// handleCreateShop handles POST /shops.
func (s *Server) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, r, badRequest("invalid JSON body"), nil)
		return
	}
	shop, err := s.shops.Create(r.Context(), &model.Shop{
		SellerID: req.SellerID,
		Name:     req.Name,
		Slug:     req.Slug,
		Status:   req.Status,
	})
	if err != nil {
		// a committed write whose side effects failed still reports the shop
		writeError(w, s.logger, r, err, shopData(shop))
		return
	}
	writeSuccess(w, http.StatusCreated, "record was successfully created", shop)
}

// handleUpdateShop handles PUT /shops/{id}.
func (s *Server) handleUpdateShop(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	var patch storage.ShopUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, s.logger, r, badRequest("invalid JSON body"), nil)
		return
	}
	shop, err := s.shops.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, s.logger, r, err, shopData(shop))
		return
	}
	writeSuccess(w, http.StatusOK, "record was successfully updated", shop)
}

// handleDeleteShop handles DELETE /shops/{id}.
func (s *Server) handleDeleteShop(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	shop, err := s.shops.Delete(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, r, err, shopData(shop))
		return
	}
	writeSuccess(w, http.StatusOK, "record was successfully deleted", shop)
}

// handleRestoreShop handles POST /shops/{id}/restore.
func (s *Server) handleRestoreShop(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	shop, err := s.shops.Restore(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, r, err, shopData(shop))
		return
	}
	writeSuccess(w, http.StatusOK, "record was successfully restored", shop)
}

func shopData(shop *model.Shop) any {
	if shop == nil {
		return nil
	}
	return shop
}
