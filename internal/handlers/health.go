package handlers

import (
	"net/http"

	"github.com/dbuatti/danielebuatti-sub001/httpx"
	"github.com/dbuatti/danielebuatti-sub001/internal/db"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type HealthHandler struct {
	base
	db *gorm.DB
}

func NewHealthHandler(conn *gorm.DB, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{base: base{log: log}, db: conn}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(h.db.WithContext(r.Context())); err != nil {
		h.log.WithError(err).Warn("health check failed")
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
