package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-market-gate/gate"
	"github.com/goliatone/go-market-gate/internal/model"
	"github.com/goliatone/go-market-gate/internal/storage"
)

// TagService is the tag storage the handlers drive.
type TagService interface {
	List(ctx context.Context, page, perPage int) ([]*model.Tag, int, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Tag, error)
	Create(ctx context.Context, tag *model.Tag) (*model.Tag, error)
	Update(ctx context.Context, id uuid.UUID, patch storage.TagUpdate) (*model.Tag, error)
	Destroy(ctx context.Context, ids []uuid.UUID) (int64, error)
	DropAll(ctx context.Context) (int64, error)
	Truncate(ctx context.Context) error
	RestoreAll(ctx context.Context) (int64, error)
}

type tagRequest struct {
	Name    string     `json:"name"`
	Slug    string     `json:"slug"`
	Details string     `json:"details"`
	ShopID  *uuid.UUID `json:"shop_id"`
}

type idsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// handleListTags handles GET /tags. The listing is gated.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Authorize(r.Context(), gate.OperationListTags); err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", storage.DefaultPerPage)
	tags, total, err := s.tags.List(r.Context(), page, perPage)
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Status:  true,
		Message: "success",
		Data:    tags,
		Meta:    pageMeta{Page: page, PerPage: perPage, Total: total},
	})
}

// handleCreateTag handles POST /tags.
func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, r, badRequest("invalid JSON body"), nil)
		return
	}
	tag, err := s.tags.Create(r.Context(), &model.Tag{
		Name:    req.Name,
		Slug:    req.Slug,
		Details: req.Details,
		ShopID:  req.ShopID,
	})
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeSuccess(w, http.StatusCreated, "record was successfully created", tag)
}

// handleGetTag handles GET /tags/{id}.
func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	tag, err := s.tags.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "success", tag)
}

// handleUpdateTag handles PUT /tags/{id}.
func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	var patch storage.TagUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, s.logger, r, badRequest("invalid JSON body"), nil)
		return
	}
	tag, err := s.tags.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "record was successfully updated", tag)
}

// handleDestroyTags handles DELETE /tags/delete with a JSON list of ids.
func (s *Server) handleDestroyTags(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, r, badRequest("invalid JSON body"), nil)
		return
	}
	n, err := s.tags.Destroy(r.Context(), req.IDs)
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, envelope{Status: false, Code: storage.TextCodeNotFound, Message: "no matching records"})
		return
	}
	writeSuccess(w, http.StatusOK, "record was successfully deleted", map[string]int64{"deleted": n})
}

// handleDropAllTags handles DELETE /tags/drop/all.
func (s *Server) handleDropAllTags(w http.ResponseWriter, r *http.Request) {
	n, err := s.tags.DropAll(r.Context())
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "record was successfully deleted", map[string]int64{"deleted": n})
}

// handleTruncateTags handles DELETE /tags/truncate/db.
func (s *Server) handleTruncateTags(w http.ResponseWriter, r *http.Request) {
	if err := s.tags.Truncate(r.Context()); err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "record was successfully deleted", nil)
}

// handleRestoreAllTags handles POST /tags/restore/all.
func (s *Server) handleRestoreAllTags(w http.ResponseWriter, r *http.Request) {
	n, err := s.tags.RestoreAll(r.Context())
	if err != nil {
		writeError(w, s.logger, r, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "records were successfully restored", map[string]int64{"restored": n})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest(name + ": must be a valid UUID")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
