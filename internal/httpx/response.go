package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hzerradi/formatrack/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// statusFor maps an apperr kind to an HTTP status.
func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindState, apperr.KindPrecondition:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnknownRole:
		return http.StatusBadRequest
	case apperr.KindStorage:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// AppError writes a typed application error as a JSON response, with the
// localized message for lang. Non-apperr errors become a 500 storage_error.
func AppError(w http.ResponseWriter, err error, translate func(code string) string) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Storage(err)
	}
	resp := ErrorResponse{Error: e.Code}
	if translate != nil {
		resp.Message = translate(e.Code)
	}
	if len(e.Details) > 0 {
		resp.Details = e.Details
	}
	JSON(w, statusFor(e.Kind), resp)
}
