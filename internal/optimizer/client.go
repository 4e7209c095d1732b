package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultOptimizeTimeout = 30 * time.Second

// HTTPClient calls a fleet-routing endpoint speaking the JSON wire format of
// Request and Response.
type HTTPClient struct {
	client   *resty.Client
	endpoint string
	tokens   TokenSource
}

func NewHTTPClient(endpoint string, tokens TokenSource, timeout time.Duration) (*HTTPClient, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultOptimizeTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewHTTPClientWithClient(endpoint, tokens, client)
}

func NewHTTPClientWithClient(endpoint string, tokens TokenSource, client *resty.Client) (*HTTPClient, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("optimizer endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid optimizer endpoint: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultOptimizeTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPClient{
		client:   client,
		endpoint: trimmedEndpoint,
		tokens:   tokens,
	}, nil
}

func (c *HTTPClient) Optimize(ctx context.Context, req *Request) (*Response, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("optimizer client is not initialized")
	}
	if req == nil {
		return nil, fmt.Errorf("optimize request is required")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		var optErr *Error
		if errors.As(err, &optErr) {
			return nil, err
		}
		return nil, &Error{Message: "failed to obtain access token", Cause: err}
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.endpoint)
	if err != nil {
		return nil, &Error{
			Message:   "optimizer request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &Error{
			Message:   "optimizer returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &Error{
			StatusCode: statusCode,
			Message:    errorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var out Response
	if err := json.Unmarshal(response.Body(), &out); err != nil {
		return nil, &Error{
			StatusCode: statusCode,
			Message:    "failed to decode optimizer response",
			Cause:      err,
		}
	}

	return &out, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func errorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("optimizer returned status %d", statusCode)
	if body == "" {
		return base
	}
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return fmt.Sprintf("%s: %s", base, body)
}
