package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"audiocast/internal/domain"
	"audiocast/internal/transcode"
	"audiocast/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeUseCaseError(w http.ResponseWriter, err error) {
	var tErr *transcode.Error
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid track identifier")
	case errors.Is(err, domain.ErrOriginExhausted), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "could not fetch audio from any source")
	case errors.As(err, &tErr), errors.Is(err, usecase.ErrEncode):
		writeError(w, http.StatusInternalServerError, "transcode_error", "audio conversion failed")
	case errors.Is(err, usecase.ErrFetch):
		writeError(w, http.StatusBadGateway, "fetch_error", "source download failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// trackIDFromPath extracts the reference from paths like /stream/{id}. The
// id segment may itself contain encoded slashes, so everything after the
// prefix is taken verbatim.
func trackIDFromPath(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func parseOptionalIntQuery(value string, defaultValue int) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseBoolQuery(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
