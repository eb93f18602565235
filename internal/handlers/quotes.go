package handlers

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/dbuatti/danielebuatti-sub001/internal/pdf"
	"github.com/dbuatti/danielebuatti-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type QuoteHandler struct {
	base
	quotes *services.QuoteService
}

func NewQuoteHandler(quotes *services.QuoteService, log logrus.FieldLogger) *QuoteHandler {
	return &QuoteHandler{base: base{log: log}, quotes: quotes}
}

type createQuoteRequest struct {
	models.QuoteForm
	Finalize bool `json:"finalize"`
}

type revisionRequest struct {
	VersionName string `json:"versionName"`
}

type totalsResponse struct {
	PreDiscountTotal float64 `json:"preDiscountTotal"`
	Total            float64 `json:"total"`
	Deposit          float64 `json:"deposit"`
}

func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.quotes.List(r.Context(), principal(r), r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	q, err := h.quotes.Create(r.Context(), principal(r), req.QuoteForm, req.Finalize)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	h.reply(w, r, q, err)
}

func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var form models.QuoteForm
	if !h.decode(w, r, &form, false) {
		return
	}
	q, err := h.quotes.Update(r.Context(), principal(r), chi.URLParam(r, "id"), form)
	h.reply(w, r, q, err)
}

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.quotes.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.Finalize(r.Context(), principal(r), chi.URLParam(r, "id"))
	h.reply(w, r, q, err)
}

// Send answers 200 even when the email failed; the body then carries a warning.
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	res, err := h.quotes.Send(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *QuoteHandler) Revise(w http.ResponseWriter, r *http.Request) {
	var req revisionRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	q, err := h.quotes.IssueRevision(r.Context(), principal(r), chi.URLParam(r, "id"), req.VersionName)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *QuoteHandler) Activate(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.ActivateVersion(r.Context(), principal(r), chi.URLParam(r, "id"), chi.URLParam(r, "versionId"))
	h.reply(w, r, q, err)
}

func (h *QuoteHandler) Reset(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.Reset(r.Context(), principal(r), chi.URLParam(r, "id"))
	h.reply(w, r, q, err)
}

func (h *QuoteHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	list, err := h.quotes.Deliveries(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := pdf.Quote(q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+q.Slug+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// PreviewTotal runs the calculator on an unsaved form so the builder can show live totals.
func (h *QuoteHandler) PreviewTotal(w http.ResponseWriter, r *http.Request) {
	var content models.QuoteContent
	if !h.decode(w, r, &content, false) {
		return
	}
	httpx.JSON(w, http.StatusOK, totalsResponse{
		PreDiscountTotal: content.PreDiscountTotal(),
		Total:            content.Total(),
		Deposit:          content.Deposit(),
	})
}

func (h *QuoteHandler) reply(w http.ResponseWriter, r *http.Request, q *models.Quote, err error) {
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}
