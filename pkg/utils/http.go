package utils

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// maxErrorBody caps how much of a failed response is kept in an HTTPError
	maxErrorBody = 512

	// maxDrainBody caps how much of an unread body is discarded before close.
	// Larger remainders cost the connection instead.
	maxDrainBody = 64 << 10
)

// HTTPClientConfig holds configuration for HTTP client creation
type HTTPClientConfig struct {
	Timeout             time.Duration
	MaxIdleConnsPerHost int
}

// DefaultHTTPClientConfig returns default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConnsPerHost: 4,
	}
}

// NewHTTPClient creates a new keep-alive HTTP client with the given configuration
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
	}
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// NewDefaultHTTPClient creates a new HTTP client with default configuration
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(DefaultHTTPClientConfig())
}

// HTTPError represents a non-2xx response from a remote endpoint
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
	}
	return fmt.Sprintf("HTTP %d: %s (URL: %s): %s", e.StatusCode, e.Status, e.URL, e.Body)
}

// CheckHTTPResponse returns an HTTPError for any non-2xx response.
// The body is partially consumed in that case.
func CheckHTTPResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	httpErr := HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		u := *resp.Request.URL
		// query strings may carry user text
		u.RawQuery = ""
		httpErr.URL = u.String()
	}
	if resp.Body != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr.Body = strings.TrimSpace(string(body))
	}
	return httpErr
}

// SafeCloseResponse drains and closes the response body so the connection can be reused
func SafeCloseResponse(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBody))
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close HTTP response body", "error", err)
	}
}
