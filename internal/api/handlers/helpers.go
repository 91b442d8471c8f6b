package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"coldchain-dispatch-service/internal/api/dto"
	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/platform/obs"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

// writeError translates a tagged error into an HTTP status. Untagged errors
// are internal failures: they are logged in full and masked on the wire.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, r, status, dto.ErrorResponse{Error: "internal server error", Kind: string(domain.KindInternal)})
		return
	}

	writeJSON(w, r, status, dto.ErrorResponse{Error: err.Error(), Kind: string(kind)})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindPreconditionFailure:
		return http.StatusPreconditionFailed
	case domain.KindInfeasible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes exactly one JSON object, rejecting unknown fields and
// trailing content.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return domain.E(domain.KindValidation, "invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return domain.E(domain.KindValidation, "body must contain only one JSON object")
	}

	return nil
}
