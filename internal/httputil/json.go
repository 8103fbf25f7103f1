package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"tradejournal/internal/apperr"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func ReadJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps the service error taxonomy onto HTTP status codes.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsStateConflict(err):
		status = http.StatusConflict
	case apperr.IsFeed(err):
		status = http.StatusBadGateway
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	}
	WriteJSON(w, status, ErrorResponse{Error: err.Error()})
}
