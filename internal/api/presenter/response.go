package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/core"
	"github.com/darmiel/idtoken/internal/correlation"
	"github.com/darmiel/idtoken/internal/service"
)

type ErrorResponse struct {
	Error         string    `json:"error"`
	Code          core.Kind `json:"code,omitempty"`
	CorrelationID string    `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	writeError(w, r, ErrorResponse{Error: msg}, status)
}

// Err writes err with the status attached by the service layer and its stable code.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest // generic default status
	var httpError *service.HTTPError
	if errors.As(err, &httpError) {
		status = httpError.StatusCode
	}
	writeError(w, r, ErrorResponse{
		Error: err.Error(),
		Code:  core.KindOf(err),
	}, status)
}

func writeError(w http.ResponseWriter, r *http.Request, resp ErrorResponse, status int) {
	resp.CorrelationID = correlation.FromContext(r.Context())
	JSON(w, r, resp, status)
}
