package handlers

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/dbuatti/danielebuatti-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type DraftHandler struct {
	base
	drafts *services.DraftService
}

func NewDraftHandler(drafts *services.DraftService, log logrus.FieldLogger) *DraftHandler {
	return &DraftHandler{base: base{log: log}, drafts: drafts}
}

type draftRequest struct {
	Title string           `json:"title"`
	Data  models.QuoteForm `json:"data"`
}

type promoteRequest struct {
	Finalize bool `json:"finalize"`
}

func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.drafts.List(r.Context(), principal(r).UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, drafts)
}

func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *DraftHandler) save(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req draftRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	d, err := h.drafts.Save(r.Context(), principal(r).UserID, id, req.Title, req.Data)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, status, d)
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(r.Context(), principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(r.Context(), principal(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Promote turns the draft into a quote; the draft is gone afterwards.
func (h *DraftHandler) Promote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	q, err := h.drafts.Promote(r.Context(), principal(r), chi.URLParam(r, "id"), req.Finalize)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}
