package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	chatPath = "/api/support-chat"

	defaultRetryMax = 2
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 1 << 20
)

// ClientOptions configures the endpoint client.
type ClientOptions struct {
	// BaseURL is the API root, e.g. "http://localhost:8080".
	BaseURL string
	// RetryMax is the number of retries on connection errors and 5xx answers (default 2).
	RetryMax int
	// Timeout bounds one HTTP attempt (default 30s).
	Timeout time.Duration
}

// Answer is the part of a support-chat response the runner scores.
type Answer struct {
	StatusCode  int
	Reply       string
	NeedHandoff bool
	TopSim      float64
	Latency     time.Duration
}

// Client posts questions to the support-chat endpoint.
type Client struct {
	endpoint   string
	httpClient *retryablehttp.Client
}

// NewClient creates a client for the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.RetryMax == 0 {
		opts.RetryMax = defaultRetryMax
	}

	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil
	// Error bodies are still JSON replies worth reporting.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		endpoint:   strings.TrimSuffix(opts.BaseURL, "/") + chatPath,
		httpClient: retryClient,
	}
}

type chatResponse struct {
	OK          bool    `json:"ok"`
	Reply       string  `json:"reply"`
	NeedHandoff bool    `json:"needHandoff"`
	TopSim      float64 `json:"topSim"`
	Error       string  `json:"error"`
}

// Ask posts one question. Latency covers retries. Non-2xx answers are returned with an
// empty reply rather than as an error, so the case is scored as failed and the run continues.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	body, err := json.Marshal(map[string]string{"message": question})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	answer := &Answer{StatusCode: resp.StatusCode, Latency: time.Since(start)}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return answer, nil //nolint:nilerr // an unparsable body scores as an empty reply
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		answer.Reply = decoded.Reply
		answer.NeedHandoff = decoded.NeedHandoff
		answer.TopSim = decoded.TopSim
	}

	return answer, nil
}
