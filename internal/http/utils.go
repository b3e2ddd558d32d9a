package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/pkg/logger"
)

// maxJSONBody caps request bodies decoded by decodeJSON.
const maxJSONBody = 2 << 20

// envelope is the shape of every API response: data on success, error otherwise.
type envelope struct {
	Data  interface{} `json:"data"`
	Error *string     `json:"error"`
}

// WriteJSONError writes {"data": null, "error": message} with the given status.
func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeEnvelope(w, statusCode, envelope{Error: &message})
}

// writeJSON writes {"data": v, "error": null} with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	writeEnvelope(w, status, envelope{Data: v})
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a JSON request body, rejecting bodies over maxJSONBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// writeServiceError maps domain errors to status codes. Anything unrecognized
// is logged and reported as fallback with a 500.
func writeServiceError(w http.ResponseWriter, log logger.Logger, err error, fallback string) {
	switch {
	case domain.IsValidation(err):
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case domain.IsNotFound(err):
		WriteJSONError(w, err.Error(), http.StatusNotFound)
	case domain.IsConflict(err):
		WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrSessionInvalid):
		WriteJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrInvalidSignature):
		WriteJSONError(w, err.Error(), http.StatusForbidden)
	default:
		log.WithField("error", err.Error()).Error(fallback)
		WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func adminSession(r *http.Request) (*domain.Admin, bool) {
	return domain.AdminFromContext(r.Context())
}
