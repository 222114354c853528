package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

//go:generate mockgen -destination=mock_reasoner.go -package=internal . Reasoner

// Reasoner turns a prompt into free text. Implementations must honour ctx cancellation.
type Reasoner interface {
	Generate(ctx context.Context, req ReasoningRequest) (string, error)
}

// ReasoningRequest is a single-shot completion request.
type ReasoningRequest struct {
	Instructions string
	Prompt       string
}

const (
	generatePath       = "/api/generate"
	contentType        = "application/json"
	maxErrorBodyLength = 200
)

// ReasoningError is returned for every failed reasoning call. It always matches
// ErrExternalServiceUnavailable and unwraps to the underlying cause, if any.
type ReasoningError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *ReasoningError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *ReasoningError) Unwrap() error {
	return e.Err
}

func (e *ReasoningError) Is(target error) bool {
	return target == ErrExternalServiceUnavailable
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// OllamaReasoner calls an Ollama-compatible /api/generate endpoint.
// Requests are attempted exactly once; the caller's context bounds the call.
type OllamaReasoner struct {
	endpoint string
	model    string
	apiKey   string
	client   *retryablehttp.Client
	logger   *slog.Logger
}

// NewReasoner builds the configured reasoner, or returns nil when no endpoint is set.
func NewReasoner(cfg ReasoningConfig, logger *slog.Logger) Reasoner {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil
	}
	return NewOllamaReasoner(cfg, logger)
}

func NewOllamaReasoner(cfg ReasoningConfig, logger *slog.Logger) *OllamaReasoner {
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.HTTPClient = &http.Client{Timeout: cfg.timeout()}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = logger

	return &OllamaReasoner{
		endpoint: generateURL(cfg.Endpoint),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   client,
		logger:   logger,
	}
}

func generateURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if strings.HasSuffix(endpoint, generatePath) {
		return endpoint
	}
	return endpoint + generatePath
}

func (r *OllamaReasoner) Generate(ctx context.Context, req ReasoningRequest) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  r.model,
		System: req.Instructions,
		Prompt: req.Prompt,
		Stream: false,
	})
	if err != nil {
		return "", &ReasoningError{Code: "ENCODE", Message: "failed to marshal request", Err: err}
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ReasoningError{Code: "REQUEST", Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", contentType)
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", &ReasoningError{Code: "TIMEOUT", Message: "reasoning call cancelled", Err: ctx.Err()}
		}
		return "", &ReasoningError{Code: "TRANSPORT", Message: "reasoning call failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ReasoningError{Code: "TRANSPORT", Message: "failed to read response", Err: errors.Wrap(err, "read body")}
	}
	r.logger.Debug("reasoning response", "status", resp.StatusCode, "duration", time.Since(start), "size", len(respBody))

	if resp.StatusCode != http.StatusOK {
		return "", handleHTTPError(resp.StatusCode, respBody)
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &ReasoningError{Code: "DECODE", Message: "failed to parse response", Err: errors.Wrap(err, "unmarshal")}
	}
	if out.Error != "" {
		return "", &ReasoningError{Code: "SERVICE", Message: out.Error}
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", &ReasoningError{Code: "EMPTY", Message: "reasoning service returned no text"}
	}
	return text, nil
}

// handleHTTPError maps a non-200 response onto a ReasoningError.
func handleHTTPError(statusCode int, body []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &errResp)
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		msg = truncate(strings.TrimSpace(string(body)), maxErrorBodyLength)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &ReasoningError{Code: "UNAUTHORIZED", Message: nonEmpty(msg, "credentials rejected"), StatusCode: statusCode}
	case statusCode == http.StatusNotFound:
		return &ReasoningError{Code: "NOT_FOUND", Message: nonEmpty(msg, "model or endpoint not found"), StatusCode: statusCode}
	case statusCode == http.StatusTooManyRequests:
		return &ReasoningError{Code: "RATE_LIMITED", Message: nonEmpty(msg, "rate limited"), StatusCode: statusCode}
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return &ReasoningError{Code: "TIMEOUT", Message: nonEmpty(msg, "upstream timeout"), StatusCode: statusCode}
	case statusCode >= 500:
		return &ReasoningError{Code: "SERVER_ERROR", Message: nonEmpty(msg, http.StatusText(statusCode)), StatusCode: statusCode}
	default:
		return &ReasoningError{Code: "HTTP_ERROR", Message: nonEmpty(msg, http.StatusText(statusCode)), StatusCode: statusCode}
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
