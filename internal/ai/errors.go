// errors.go - Categorized provider errors

package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/api/googleapi"
)

// ProviderError represents a categorized provider failure
type ProviderError struct {
	Provider   string
	Category   string
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: [%s] %s (status: %d)", e.Provider, e.Category, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// categorizeStatus maps an HTTP status to a category.
func categorizeStatus(code int) (category string, retryable bool) {
	switch {
	case code == http.StatusBadRequest:
		return "bad_request", false
	case code == http.StatusUnauthorized:
		return "unauthorized", false
	case code == http.StatusForbidden:
		return "forbidden", false
	case code == http.StatusNotFound:
		return "not_found", false
	case code == http.StatusRequestEntityTooLarge:
		return "payload_too_large", false
	case code == http.StatusTooManyRequests:
		return "rate_limit", true
	case code >= 500:
		return "server_error", true
	}
	return "unknown_api_error", false
}

// categorizeError analyzes an error returned by an SDK or transport.
func categorizeError(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	perr := &ProviderError{
		Provider: provider,
		Category: "unknown",
		Message:  err.Error(),
		Err:      err,
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.Code
		perr.Category, perr.Retryable = categorizeStatus(apiErr.Code)
		if apiErr.Message != "" {
			perr.Message = apiErr.Message
		}
		return perr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		perr.Category = "timeout"
		perr.Message = "request timeout"
		perr.Retryable = true
		return perr
	case errors.Is(err, context.Canceled):
		perr.Category = "canceled"
		perr.Message = "request was canceled"
		return perr
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			perr.Category = "timeout"
		} else {
			perr.Category = "network_error"
		}
		perr.Retryable = true
		return perr
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "quota"):
		perr.Category = "quota_exceeded"
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		perr.Category = "timeout"
		perr.Retryable = true
	case strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network"):
		perr.Category = "network_error"
		perr.Retryable = true
	}
	return perr
}

// httpError builds a ProviderError from a non-2xx response body. The
// message is taken from the usual JSON error shapes when present.
func httpError(provider string, status int, body []byte) *ProviderError {
	category, retryable := categorizeStatus(status)
	msg := ""
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "detail"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
				msg = v.String()
				break
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &ProviderError{
		Provider:   provider,
		Category:   category,
		StatusCode: status,
		Message:    msg,
		Retryable:  retryable,
	}
}
