package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Common client errors
var (
	// ErrTimeout is returned when a call exceeds its deadline
	ErrTimeout = errors.New("client: request timeout")

	// ErrCircuitOpen is returned while the breaker rejects calls
	ErrCircuitOpen = errors.New("client: circuit breaker open")
)

const maxResponseBytes = 16 << 20

// APIError is a non-2xx response from a remote ledger
type APIError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	ID         string
	Name       string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s %s returned %d", e.Service, e.Method, e.Path, e.StatusCode)
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// errorEnvelope covers both {"error":{"id","name","detail"}} and {"errors":{...}}
type errorEnvelope struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
	Errors map[string]any `json:"errors"`
}

// Requester performs authenticated JSON calls against one API
type Requester struct {
	Service   string
	BaseURL   string
	Token     string
	HTTP      *http.Client
	Validator *ValidationHelper
}

// NewRequester builds a Requester with a bounded http.Client
func NewRequester(service, baseURL, token string, timeout time.Duration) *Requester {
	return &Requester{
		Service:   service,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		HTTP:      &http.Client{Timeout: timeout},
		Validator: NewValidationHelper(),
	}
}

// Do sends body as JSON, decodes the response into out and validates it
func (r *Requester) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := r.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode %s request: %w", r.Service, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build %s request: %w", r.Service, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return fmt.Errorf("%s: %s %s: %w", r.Service, method, path, ErrTimeout)
		}
		return fmt.Errorf("%s: %s %s: %w", r.Service, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read %s response: %w", r.Service, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return r.apiError(method, path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode %s response: %w", r.Service, path, err)
	}

	if err := r.Validator.ValidateStruct(out); err != nil {
		if details := Describe(err); details != nil {
			return &ShapeError{Service: r.Service, Path: path, Details: details}
		}
		return fmt.Errorf("%s: validate %s response: %w", r.Service, path, err)
	}

	return nil
}

func (r *Requester) apiError(method, path string, status int, raw []byte) error {
	apiErr := &APIError{
		Service:    r.Service,
		Method:     method,
		Path:       path,
		StatusCode: status,
	}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		apiErr.ID = env.Error.ID
		apiErr.Name = env.Error.Name
		apiErr.Detail = env.Error.Detail
		if apiErr.Detail == "" && len(env.Errors) > 0 {
			apiErr.Detail = fmt.Sprint(env.Errors)
		}
	}
	if apiErr.Detail == "" && apiErr.Name == "" {
		detail := strings.TrimSpace(string(raw))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		apiErr.Detail = detail
	}

	return apiErr
}
