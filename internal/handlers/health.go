package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

type HealthHandler struct {
	started time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"version": "1.0.0",
	})
}
