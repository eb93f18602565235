package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/dbuatti/danielebuatti-sub001/internal/services"
	"github.com/dbuatti/danielebuatti-sub001/view"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PublicHandler serves the client-facing quote page. The slug is the only credential.
type PublicHandler struct {
	base
	quotes *services.QuoteService
}

func NewPublicHandler(quotes *services.QuoteService, log logrus.FieldLogger) *PublicHandler {
	return &PublicHandler{base: base{log: log}, quotes: quotes}
}

// publicQuote is what a client may see: no owner, no history, only the active version.
type publicQuote struct {
	Slug             string              `json:"slug"`
	ClientName       string              `json:"clientName"`
	InvoiceType      models.InvoiceType  `json:"invoiceType"`
	EventTitle       string              `json:"eventTitle"`
	EventDate        string              `json:"eventDate,omitempty"`
	EventTime        string              `json:"eventTime,omitempty"`
	EventLocation    string              `json:"eventLocation,omitempty"`
	PreparedBy       string              `json:"preparedBy,omitempty"`
	Status           models.QuoteStatus  `json:"status"`
	AcceptedAt       *time.Time          `json:"accepted_at"`
	RejectedAt       *time.Time          `json:"rejected_at"`
	Version          models.QuoteVersion `json:"version"`
	PreDiscountTotal float64             `json:"preDiscountTotal"`
	Total            float64             `json:"total"`
	Deposit          float64             `json:"deposit"`
	CanRespond       bool                `json:"canRespond"`
}

func newPublicQuote(q *models.Quote) (publicQuote, error) {
	page, err := view.NewQuotePage(q)
	if err != nil {
		return publicQuote{}, err
	}
	v := page.Version
	return publicQuote{
		Slug:             q.Slug,
		ClientName:       q.ClientName,
		InvoiceType:      q.InvoiceType,
		EventTitle:       q.EventTitle,
		EventDate:        q.EventDate,
		EventTime:        q.EventTime,
		EventLocation:    q.EventLocation,
		PreparedBy:       q.PreparedBy,
		Status:           v.Status,
		AcceptedAt:       v.AcceptedAt,
		RejectedAt:       v.RejectedAt,
		Version:          v,
		PreDiscountTotal: v.PreDiscountTotal(),
		Total:            v.TotalAmount,
		Deposit:          v.Deposit(),
		CanRespond:       page.CanRespond,
	}, nil
}

// Page renders the HTML quote. Draft quotes are not public yet.
func (h *PublicHandler) Page(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err == nil && q.Status == models.StatusDraft {
		err = errors.Wrap(apperr.ErrNotFound, "quote")
	}
	if errors.Is(err, apperr.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.WithError(err).Error("load public quote")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	page, err := view.NewQuotePage(q)
	if err == nil {
		err = view.Render(w, http.StatusOK, "quote.html", page)
	}
	if err != nil {
		h.log.WithError(err).WithField("slug", q.Slug).Error("render quote page")
	}
}

func (h *PublicHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err == nil && q.Status == models.StatusDraft {
		err = errors.Wrap(apperr.ErrNotFound, "quote")
	}
	h.replyPublic(w, r, q, err)
}

type acceptRequest struct {
	SelectedAddOns []string `json:"selectedAddOns"`
}

// Accept takes JSON, or the form posted by the HTML page; the form flow redirects back to it.
func (h *PublicHandler) Accept(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	var req acceptRequest
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_form", err.Error())
			return
		}
		req.SelectedAddOns = r.PostForm["selectedAddOns"]
	} else if !h.decode(w, r, &req, true) {
		return
	}
	q, err := h.quotes.Accept(r.Context(), slug, req.SelectedAddOns)
	h.answer(w, r, q, err)
}

func (h *PublicHandler) Reject(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.Reject(r.Context(), chi.URLParam(r, "slug"))
	h.answer(w, r, q, err)
}

func (h *PublicHandler) answer(w http.ResponseWriter, r *http.Request, q *models.Quote, err error) {
	if err == nil && isForm(r) {
		http.Redirect(w, r, "/q/"+q.Slug, http.StatusSeeOther)
		return
	}
	h.replyPublic(w, r, q, err)
}

func (h *PublicHandler) replyPublic(w http.ResponseWriter, r *http.Request, q *models.Quote, err error) {
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out, err := newPublicQuote(q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}
