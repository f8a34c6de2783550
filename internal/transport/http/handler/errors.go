package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-docverify/internal/domain"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindMissingInput:     http.StatusBadRequest,
	domain.KindExtractionFailed: http.StatusUnprocessableEntity,
	domain.KindMismatch:         http.StatusUnprocessableEntity,
	domain.KindInvalidSession:   http.StatusNotFound,
	domain.KindExpired:          http.StatusGone,
	domain.KindInvalidOTP:       http.StatusUnauthorized,
	domain.KindTooManyAttempts:  http.StatusTooManyRequests,
	domain.KindInternal:         http.StatusInternalServerError,
}

// httpError maps a service error onto its status and kind. Internal
// failures are logged and answered without detail.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.Kind(err)
	status := kindStatus[kind]
	if kind == domain.KindInternal {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, kind, "internal server error")
		return
	}
	writeError(w, status, kind, publicMessage(err))
}

// publicMessage strips the trailing sentinel text from a wrapped error so
// "no PAN number found in image: extraction failed" reads as the first part.
func publicMessage(err error) string {
	msg := err.Error()
	if inner := errors.Unwrap(err); inner != nil {
		return strings.TrimSuffix(msg, ": "+inner.Error())
	}
	return msg
}
