package handlers

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/extract"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

type ExtractHandler struct {
	base
	extractor extract.Extractor
}

func NewExtractHandler(extractor extract.Extractor, log logrus.FieldLogger) *ExtractHandler {
	return &ExtractHandler{base: base{log: log}, extractor: extractor}
}

type extractRequest struct {
	EmailContent string `json:"emailContent"`
	// Form is the builder state to merge into; omitted means an empty form.
	Form *models.QuoteForm `json:"form,omitempty"`
}

type extractResponse struct {
	Form models.QuoteForm `json:"form"`
}

// Extract returns a form pre-filled from the pasted email. Nothing is persisted.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	extracted, err := h.extractor.Extract(r.Context(), req.EmailContent)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var form models.QuoteForm
	if req.Form != nil {
		form = *req.Form
	}
	httpx.JSON(w, http.StatusOK, extractResponse{Form: extract.MergeIntoForm(form, extracted)})
}
