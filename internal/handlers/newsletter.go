package handlers

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/audience"
	"github.com/sirupsen/logrus"
)

type NewsletterHandler struct {
	base
	audience audience.Subscribing
}

func NewNewsletterHandler(a audience.Subscribing, log logrus.FieldLogger) *NewsletterHandler {
	return &NewsletterHandler{base: base{log: log}, audience: a}
}

type subscribeResponse struct {
	Outcome audience.Outcome `json:"outcome"`
	Message string           `json:"message"`
}

// Subscribe answers 200 for both new and existing members; the outcome tells them apart.
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req audience.Subscriber
	if !h.decode(w, r, &req, false) {
		return
	}
	outcome, err := h.audience.Subscribe(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	msg := "Thanks for subscribing!"
	if outcome == audience.OutcomeAlreadySubscribed {
		msg = "You're already subscribed."
	}
	httpx.JSON(w, http.StatusOK, subscribeResponse{Outcome: outcome, Message: msg})
}
