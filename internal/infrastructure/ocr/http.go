package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-docverify/internal/infrastructure/staging"
)

// recognizeRequest carries either a fetchable URL or the inline image.
type recognizeRequest struct {
	ImageURL string `json:"image_url,omitempty"`
	Image    string `json:"image,omitempty"` // base64
	Locale   string `json:"locale,omitempty"`
}

type recognizeResponse struct {
	RawAnswerText string  `json:"raw_answer_text"`
	Confidence    float64 `json:"confidence,omitempty"`
}

// HTTP calls a remote OCR service. Remotely staged images are passed by
// presigned URL; local ones are inlined as base64.
type HTTP struct {
	endpoint string
	locale   string
	client   *http.Client
}

func NewHTTP(endpoint, locale string, timeout time.Duration) *HTTP {
	return &HTTP{endpoint: endpoint, locale: locale, client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Recognize(ctx context.Context, img staging.Object) (string, error) {
	req := recognizeRequest{Locale: h.locale}
	url, err := img.URL(ctx)
	switch {
	case err == nil:
		req.ImageURL = url
	case errors.Is(err, staging.ErrNoURL):
		rc, err := img.Open(ctx)
		if err != nil {
			return "", fmt.Errorf("open staged image: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read staged image: %w", err)
		}
		req.Image = base64.StdEncoding.EncodeToString(data)
	default:
		return "", fmt.Errorf("presign staged image: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ocr service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr service: unexpected status %d", resp.StatusCode)
	}
	var out recognizeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return Normalize(out.RawAnswerText), nil
}
