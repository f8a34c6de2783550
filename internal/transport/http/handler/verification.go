package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-docverify/internal/application/verification"
	"github.com/go-docverify/internal/domain"
	"github.com/go-docverify/internal/pkg/validate"
)

// multipartOverhead is allowed on top of the image limit for form fields and
// part headers.
const multipartOverhead = 1 << 20

// Form field names accepted for the user-entered number and the OTP
// destination, in order of preference.
var (
	claimFields       = []string{"claimed_number", "aadhaar_number", "aadhaarNumber", "pan_number", "panNumber"}
	destinationFields = []string{"destination", "phone", "email"}
)

// ConfirmRequest is the body of an OTP confirmation.
type ConfirmRequest struct {
	SessionID string `json:"session_id" validate:"nonblank,max=128"`
	OTP       string `json:"otp" validate:"nonblank,max=32"`
	// LegacySessionID accepts the camelCase key older clients send.
	LegacySessionID string `json:"sessionId" validate:"-"`
}

// VerificationHandler serves the upload and confirm steps.
type VerificationHandler struct {
	svc      verification.Service
	maxBytes int64
}

func NewVerificationHandler(svc verification.Service, maxBytes int64) *VerificationHandler {
	return &VerificationHandler{svc: svc, maxBytes: maxBytes}
}

// Begin handles POST /v1/verifications/{documentType}.
func (h *VerificationHandler) Begin(w http.ResponseWriter, r *http.Request) {
	dt, err := domain.ParseDocumentType(chi.URLParam(r, "documentType"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.begin(w, r, dt)
}

// BeginFor binds Begin to a fixed document type for the legacy routes.
func (h *VerificationHandler) BeginFor(dt domain.DocumentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { h.begin(w, r, dt) }
}

func (h *VerificationHandler) begin(w http.ResponseWriter, r *http.Request, dt domain.DocumentType) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpError(w, r, fmt.Errorf("image exceeds %d bytes: %w", h.maxBytes, domain.ErrMissingInput))
			return
		}
		httpError(w, r, fmt.Errorf("expected a multipart form: %w", domain.ErrMissingInput))
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := verification.BeginInput{
		DocumentType:  dt,
		ClaimedNumber: firstValue(r, claimFields),
		Destination:   firstValue(r, destinationFields),
	}
	if fh := imagePart(r.MultipartForm); fh != nil {
		f, err := fh.Open()
		if err != nil {
			httpError(w, r, fmt.Errorf("open upload: %v: %w", err, domain.ErrInternal))
			return
		}
		defer f.Close()
		in.Image = f
	}

	res, err := h.svc.Begin(r.Context(), in)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BeginEnvelope{
		Success:   true,
		Message:   res.Message,
		SessionID: res.SessionID,
		TTL:       int(res.TTL.Seconds()),
		ExpiresAt: res.ExpiresAt.Unix(),
	})
}

// Confirm handles POST /v1/verifications/confirm.
func (h *VerificationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, r, fmt.Errorf("invalid request body: %w", domain.ErrMissingInput))
		return
	}
	if req.SessionID == "" {
		req.SessionID = req.LegacySessionID
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.OTP = strings.TrimSpace(req.OTP)
	if err := validate.Struct(req); err != nil {
		httpError(w, r, fmt.Errorf("%s: %w", err.Error(), domain.ErrMissingInput))
		return
	}

	res, err := h.svc.Confirm(r.Context(), req.SessionID, req.OTP)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmEnvelope{
		Success:     true,
		Message:     res.Message,
		Data:        res.Identity,
		Attestation: res.Attestation,
	})
}

func firstValue(r *http.Request, fields []string) string {
	for _, f := range fields {
		if v := strings.TrimSpace(r.FormValue(f)); v != "" {
			return v
		}
	}
	return ""
}

// imagePart prefers the "image" field and falls back to the first file of
// any name.
func imagePart(form *multipart.Form) *multipart.FileHeader {
	if fhs := form.File["image"]; len(fhs) > 0 {
		return fhs[0]
	}
	for _, fhs := range form.File {
		if len(fhs) > 0 {
			return fhs[0]
		}
	}
	return nil
}
