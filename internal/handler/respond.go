package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plutohub/platform/internal/domain"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// errorEnvelope is the wire shape of every error response.
type errorEnvelope struct {
	Error *domain.AppError `json:"error"`
}

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes the standard error envelope, unwrapping domain.AppError
// for the status code and hiding internals behind INTERNAL_ERROR.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal("internal server error", err)
	}
	if appErr.Status >= 500 {
		// Never leak infrastructure detail to the caller.
		appErr = &domain.AppError{Code: appErr.Code, Message: "internal server error", Status: appErr.Status}
	}
	RespondJSON(w, appErr.Status, errorEnvelope{Error: appErr})
}

// DecodeJSON reads and decodes a JSON request body into dst, rejecting
// unknown-size floods and trailing garbage.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("invalid JSON body: " + err.Error())
	}
	return nil
}
