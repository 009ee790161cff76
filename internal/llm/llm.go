package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

const DefaultTimeout = 30 * time.Second

var (
	errMissingAPIKey   = errors.New("API key not set, export AI_API_KEY")
	errMissingEndpoint = errors.New("API URL not set, export AI_API_URL")

	// ErrEmptyResponse is returned when the API answers with zero choices.
	ErrEmptyResponse = errors.New("no commit message was generated")
)

// StatusError carries a non-2xx API response, including the raw body.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %s", e.StatusText())
}

// StatusText renders the status line, e.g. "401 Unauthorized".
func (e *StatusError) StatusText() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

type Options struct {
	APIKey string
	// Endpoint is the full chat completions URL; requests are sent to it verbatim.
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	opts   Options
	logger *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{opts: opts, logger: logger}
}

// GenerateCommitMessage sends prompt as a single user message and returns the
// first choice's content with surrounding whitespace removed. It makes exactly
// one attempt.
func (c *Client) GenerateCommitMessage(ctx context.Context, prompt string, model string) (string, error) {
	if c.opts.APIKey == "" {
		return "", errMissingAPIKey
	}
	if c.opts.Endpoint == "" {
		return "", errMissingEndpoint
	}

	endpoint, err := url.Parse(c.opts.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", c.opts.Endpoint, err)
	}

	clientConfig := openai.DefaultConfig(c.opts.APIKey)
	clientConfig.HTTPClient = &endpointDoer{
		endpoint: endpoint,
		client:   c.opts.HTTPClient,
		logger:   c.logger,
	}
	client := openai.NewClientWithConfig(clientConfig)

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return "", statusErr
		}
		return "", fmt.Errorf("failed to call LLM: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// endpointDoer pins every request to the configured endpoint and turns non-2xx
// responses into *StatusError before the SDK consumes the body.
type endpointDoer struct {
	endpoint *url.URL
	client   *http.Client
	logger   *slog.Logger
}

func (d *endpointDoer) Do(req *http.Request) (*http.Response, error) {
	target := *d.endpoint
	req.URL = &target
	req.Host = target.Host

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	d.logger.Debug("sending API request",
		"request_id", requestID,
		"url", target.Redacted(),
		"api_key", maskKey(req.Header.Get("Authorization")),
		"request_size", req.ContentLength)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("API request failed", "request_id", requestID, "error", err)
		return nil, err
	}

	d.logger.Debug("received API response",
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"latency", time.Since(start))

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read error response: %w", err)
	}

	d.logger.Warn("API returned error status",
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"response_size", len(body))

	return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
}

func maskKey(header string) string {
	key := strings.TrimPrefix(header, "Bearer ")
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
