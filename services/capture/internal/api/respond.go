package api

import (
	"encoding/json"
	"net/http"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/pipeline"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: errors.Message(err)})
}

func writeResult(w http.ResponseWriter, res *pipeline.Result) {
	status := http.StatusOK
	if !res.Success() {
		status = statusFor(res.Err)
	}
	writeJSON(w, status, res.Reply())
}

func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrTypeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeConfiguration:
		return http.StatusPreconditionFailed
	case errors.ErrTypeExtraction:
		return http.StatusUnprocessableEntity
	case errors.ErrTypeAPI, errors.ErrTypeInvalidResponse, errors.ErrTypePersistence:
		return http.StatusBadGateway
	case errors.ErrTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.InvalidInput("invalid request body", err)
	}
	return nil
}

