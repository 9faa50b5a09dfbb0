package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"framerelay/internal/logger"
	"framerelay/internal/model"
	"framerelay/internal/service"
)

// DeliveriesData is the response of GET /api/deliveries.
type DeliveriesData struct {
	Deliveries []model.Delivery      `json:"deliveries"`
	Counts     map[model.Outcome]int `json:"counts"`
	Limit      int                   `json:"limit"`
}

// GetDeliveriesHandler returns the most recent delivery records and per-outcome totals.
func GetDeliveriesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo := manager.GetDeliveryRepository()
		if repo == nil {
			http.Error(w, "Delivery log disabled", http.StatusNotFound)
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), 50)
		if limit > 500 {
			limit = 500
		}

		deliveries, err := repo.GetRecent(limit)
		if err != nil {
			logger.Error("Failed to load deliveries: %v", err)
			http.Error(w, "Failed to load deliveries", http.StatusInternalServerError)
			return
		}
		counts, err := repo.CountByOutcome()
		if err != nil {
			logger.Error("Failed to count deliveries: %v", err)
			http.Error(w, "Failed to load deliveries", http.StatusInternalServerError)
			return
		}
		if deliveries == nil {
			deliveries = []model.Delivery{}
		}

		w.Header().Set("Content-Type", "application/json")
		data := DeliveriesData{Deliveries: deliveries, Counts: counts, Limit: limit}
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// atoiDefault parses a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
