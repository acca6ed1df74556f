package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
)

func writeEnvelope(w http.ResponseWriter, status int, env models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	// prices and balances move constantly
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		Logger.Error().Err(err).Str("code", env.Code).Msg("Failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, prefix string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		Logger.Error().Err(err).Str("prefix", prefix).Msg("Failed to encode response data")
		writeEnvelope(w, http.StatusInternalServerError, models.Envelope{
			Code:    prefix + models.CodeError,
			Message: "failed to encode response",
		})
		return
	}
	writeEnvelope(w, http.StatusOK, models.Envelope{Code: prefix + models.CodeSuccess, Data: raw})
}

func writeMissingParam(w http.ResponseWriter, prefix, name string) {
	writeEnvelope(w, http.StatusBadRequest, models.Envelope{
		Code:    prefix + models.CodeMissingParam,
		Message: "missing required header: " + name,
	})
}

func writeInvalidParam(w http.ResponseWriter, prefix, name string, err error) {
	writeEnvelope(w, http.StatusBadRequest, models.Envelope{
		Code:    prefix + models.CodeInvalidParam,
		Message: "invalid " + name + ": " + err.Error(),
	})
}

func writeCORS(w http.ResponseWriter, prefix string) {
	writeEnvelope(w, http.StatusForbidden, models.Envelope{
		Code:    prefix + models.CodeCORS,
		Message: "origin not allowed",
	})
}

// writeError maps a backend error onto the envelope. A status reported by
// the upstream is passed through, anything else becomes a 500.
func writeError(w http.ResponseWriter, prefix string, err error) {
	status := models.StatusOf(err)
	switch {
	case status >= 400 && status < 600:
	case models.IsKind(err, models.KindNotFound):
		status = http.StatusNotFound
	case models.IsKind(err, models.KindRateLimited):
		status = http.StatusTooManyRequests
	case models.IsKind(err, models.KindValidation):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	message := models.MessageOf(err)
	if message == "" {
		message = http.StatusText(status)
	}
	Logger.Warn().Err(err).Str("prefix", prefix).Int("status", status).Msg("Request failed")
	writeEnvelope(w, status, models.Envelope{Code: prefix + models.CodeError, Message: message})
}
