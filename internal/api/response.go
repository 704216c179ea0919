package api

import (
	"encoding/json"
	"net/http"

	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/models/dtos"
)

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("JSON encode failed", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, dtos.ErrorResponse{Error: message})
}
