// Package httpx holds the JSON request/response helpers shared by the module
// HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body written for every rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ReadJSON decodes a single JSON object from the request body into dst.
// Decoding problems come back as validation errors.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return apperrors.Validation("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return apperrors.Validation("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return apperrors.Validation("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return apperrors.Validation("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return apperrors.Validation("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return apperrors.Validation("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &maxBytesError):
			return apperrors.Validation("body must not be larger than %d bytes", maxBodyBytes)
		default:
			return fmt.Errorf("decode request body: %w", err)
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperrors.Validation("body must only contain a single JSON value")
	}
	return nil
}

// WriteJSON writes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps err onto the error taxonomy and writes it. Errors outside
// the taxonomy are logged and hidden behind a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteJSON(w, status, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	if kind, ok := apperrors.KindOf(err); ok {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			resp.Error = appErr.Message
		}
		resp.Kind = kind.String()
	}
	WriteJSON(w, status, resp)
}

// UUIDParam parses the named chi route parameter as a uuid.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Validation("%s %q is not a valid id", name, raw)
	}
	return id, nil
}

// IntQuery reads an optional non-negative integer query parameter.
func IntQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.Validation("%s must be a non-negative integer", name)
	}
	return v, nil
}
