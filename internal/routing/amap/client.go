// Package amap provides a client for the AMap (Gaode) web service API:
// geocoding, POI search, district lookup and route directions.
package amap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/provider/resilience"
	"github.com/triproute/triproute/internal/routing"
	"github.com/triproute/triproute/internal/telemetry"
)

const (
	// ProviderName identifies this mapping provider.
	ProviderName = "amap"

	// DefaultBaseURL is the AMap web service base URL.
	DefaultBaseURL = "https://restapi.amap.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	statusOK = "1"
)

// Info codes AMap uses when a key's quota is exhausted.
var quotaInfoCodes = map[string]bool{
	"DAILY_QUERY_OVER_LIMIT":       true,
	"ACCESS_TOO_FREQUENT":          true,
	"CUQPS_HAS_EXCEEDED_THE_LIMIT": true,
	"CKQPS_HAS_EXCEEDED_THE_LIMIT": true,
	"CQPS_HAS_EXCEEDED_THE_LIMIT":  true,
	"USER_DAILY_QUERY_OVER_LIMIT":  true,
	"IP_QUERY_OVER_LIMIT":          true,
	"QUOTA_PLAN_RUN_OUT":           true,
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the AMap client.
type ClientConfig struct {
	// APIKey is the AMap web service key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to AMap).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// RequestsPerSecond caps outgoing calls on the default client. Zero disables it.
	RequestsPerSecond float64

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Metrics records per-call latency and outcome (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AMap web service client. It implements routing.Provider.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	metrics    *telemetry.ProviderMetrics
	logger     zerolog.Logger
}

var _ routing.Provider = (*Client)(nil)

// NewClient creates a new AMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.RequestsPerSecond = cfg.RequestsPerSecond
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// get performs one GET call and returns the decoded envelope once AMap has
// reported success.
func (c *Client) get(ctx context.Context, operation, path string, params url.Values) (object, error) {
	start := time.Now()
	body, err := c.call(ctx, path, params)
	c.metrics.RecordRequest(ctx, operation, time.Since(start), outcome(err))
	if err != nil {
		c.logger.Debug().Err(err).Str("operation", operation).Msg("amap request failed")
		return nil, err
	}
	return body, nil
}

func (c *Client) call(ctx context.Context, path string, params url.Values) (object, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", c.apiKey)
	query.Set("output", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "READ_FAILED",
			Message:  "failed to read provider response",
			Err:      errors.Join(routing.ErrTransportFailure, err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("provider returned status %d", resp.StatusCode),
			Err:      routing.ErrTransportFailure,
		}
	}

	var envelope object
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "provider response is not valid JSON",
			Err:      errors.Join(routing.ErrTransportFailure, err),
		}
	}

	if status := envelope.str("status"); status != statusOK {
		return nil, rejection(envelope)
	}
	return envelope, nil
}

// rejection maps a non-success envelope to a domain error carrying AMap's
// info code.
func rejection(envelope object) error {
	info := envelope.str("info")
	if info == "" {
		info = "UNKNOWN_ERROR"
	}
	err := routing.ErrProviderRejected
	if quotaInfoCodes[info] {
		err = errors.Join(routing.ErrProviderRejected, routing.ErrRateLimitExceeded)
	}
	return &routing.Error{
		Provider: ProviderName,
		Code:     info,
		Message:  info + rejectionDetail(envelope),
		Err:      err,
	}
}

func rejectionDetail(envelope object) string {
	if code := envelope.str("infocode"); code != "" {
		return " (infocode " + code + ")"
	}
	return ""
}

func transportError(err error) error {
	switch {
	case errors.Is(err, resilience.ErrRateLimited):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "local request budget exhausted",
			Err:      errors.Join(routing.ErrRateLimitExceeded, err),
		}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "CIRCUIT_OPEN",
			Message:  "provider temporarily disabled after repeated failures",
			Err:      errors.Join(routing.ErrTransportFailure, err),
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &routing.Error{
			Provider: ProviderName,
			Code:     "TIMEOUT",
			Message:  "provider did not answer in time",
			Err:      errors.Join(routing.ErrTransportFailure, err),
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach mapping provider",
			Err:      errors.Join(routing.ErrTransportFailure, err),
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, routing.ErrRateLimitExceeded) {
		return "rate_limited"
	}
	return string(routing.Classify(err))
}
