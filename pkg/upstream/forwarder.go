package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
)

// Config contains the settings of a Forwarder.
type Config struct {
	// BaseURL is the upstream service root, e.g. "http://localhost:8000".
	BaseURL string

	// Path is appended to BaseURL, e.g. "/generate_ai_response".
	Path string

	// Timeout bounds one forwarded request end to end.
	Timeout time.Duration

	// MaxResponseBytes limits how much of an upstream reply is read.
	MaxResponseBytes int64

	// Connection pool settings
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration

	// UserAgent is sent on every upstream request.
	UserAgent string
}

// FromConfig converts the upstream section of the relay configuration.
func FromConfig(cfg config.UpstreamConfig) Config {
	return Config{
		BaseURL:             cfg.BaseURL,
		Path:                cfg.Path,
		Timeout:             cfg.Timeout,
		MaxResponseBytes:    cfg.MaxResponseBytes,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DialTimeout:         cfg.DialTimeout,
	}
}

// Defaults applied by NewForwarder to zero-valued Config fields.
const (
	DefaultTimeout          = 60 * time.Second
	DefaultMaxResponseBytes = 10 * 1024 * 1024
	DefaultDialTimeout      = 10 * time.Second
	DefaultUserAgent        = "mercator-relay"
)

// Forwarder sends validated requests to the upstream inference service.
// It holds one pooled HTTP client and no per-request state, so a single
// Forwarder serves any number of concurrent requests.
type Forwarder struct {
	config   Config
	endpoint string
	host     string
	client   *http.Client
	dialer   *net.Dialer
	logger   *slog.Logger
}

// NewForwarder validates cfg and builds a Forwarder with a pooled client.
func NewForwarder(cfg Config) (*Forwarder, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, &ConfigError{Field: "base_url", Message: fmt.Sprintf("invalid upstream URL %q", cfg.BaseURL)}
	}
	if cfg.Path != "" && !strings.HasPrefix(cfg.Path, "/") {
		return nil, &ConfigError{Field: "path", Message: fmt.Sprintf("path %q must start with /", cfg.Path)}
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	// The per-request context carries the deadline; the client itself has
	// no timeout. Redirects are relayed, not followed, so exactly one POST
	// reaches the upstream.
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	host := base.Host
	if base.Port() == "" {
		if base.Scheme == "https" {
			host = net.JoinHostPort(base.Hostname(), "443")
		} else {
			host = net.JoinHostPort(base.Hostname(), "80")
		}
	}

	return &Forwarder{
		config:   cfg,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + cfg.Path,
		host:     host,
		client:   client,
		dialer:   dialer,
		logger:   slog.Default().With("component", "upstream"),
	}, nil
}

// URL returns the endpoint requests are forwarded to.
func (f *Forwarder) URL() string {
	return f.endpoint
}

// Timeout returns the per-request time budget.
func (f *Forwarder) Timeout() time.Duration {
	return f.config.Timeout
}

// Forward sends req to the upstream as a single POST and classifies the
// result. It never retries. The call is bounded by the configured timeout
// and by ctx, so a caller that disconnects cancels the upstream call.
func (f *Forwarder) Forward(ctx context.Context, req *types.InboundRequest) Outcome {
	start := time.Now()
	outcome := f.forward(ctx, req)
	outcome.URL = f.endpoint
	outcome.Latency = time.Since(start)
	return outcome
}

func (f *Forwarder) forward(ctx context.Context, req *types.InboundRequest) Outcome {
	payload, err := json.Marshal(req)
	if err != nil {
		return Outcome{Kind: KindConnectionFailure, Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Outcome{Kind: KindConnectionFailure, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", f.config.UserAgent)
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set(middleware.RequestIDHeader, requestID)
	}

	f.logger.DebugContext(ctx, "forwarding request to upstream",
		"url", f.endpoint,
		"payload_bytes", len(payload),
	)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return f.classifyTransportError(ctx, callCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxResponseBytes+1))
	if err != nil {
		return f.classifyTransportError(ctx, callCtx, err)
	}

	if int64(len(body)) > f.config.MaxResponseBytes {
		return oversizedReply(resp.StatusCode, body[:f.config.MaxResponseBytes], f.config.MaxResponseBytes)
	}

	return classifyReply(resp.StatusCode, body)
}

// classifyTransportError decides between caller cancellation, timeout and
// connection failure. The caller's context is checked first: once it is
// done, the upstream result no longer matters.
func (f *Forwarder) classifyTransportError(ctx, callCtx context.Context, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Outcome{Kind: KindTimeout, Timeout: f.config.Timeout}
		}
		return Outcome{Kind: KindCanceled, Cause: ctxErr}
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return Outcome{Kind: KindTimeout, Timeout: f.config.Timeout}
	}
	return Outcome{Kind: KindConnectionFailure, Cause: err}
}

// oversizedReply classifies a reply whose body was cut at limit bytes. An
// error status is still mirrored with the truncated text as details; only a
// successful reply that cannot be relayed whole becomes a bad response.
func oversizedReply(status int, truncated []byte, limit int64) Outcome {
	if status >= 300 && status < 600 {
		return Outcome{
			Kind:       KindApplicationError,
			StatusCode: status,
			Body:       truncated,
			Message:    types.UpstreamStatusMessage(status),
		}
	}
	return Outcome{
		Kind:       KindBadResponse,
		StatusCode: status,
		Message:    fmt.Sprintf("response body exceeds maximum size of %d bytes", limit),
	}
}

// classifyReply maps a complete upstream reply onto an Outcome.
func classifyReply(status int, body []byte) Outcome {
	switch {
	case status >= 200 && status < 300:
		if len(bytes.TrimSpace(body)) == 0 {
			return Outcome{Kind: KindBadResponse, StatusCode: status, Body: body, Message: "empty response body"}
		}
		if !json.Valid(body) {
			return Outcome{Kind: KindBadResponse, StatusCode: status, Body: body, Message: string(body)}
		}
		return Outcome{Kind: KindSuccess, StatusCode: status, Body: body}

	case status >= 300 && status < 600:
		return Outcome{
			Kind:       KindApplicationError,
			StatusCode: status,
			Body:       body,
			Message:    applicationMessage(status, body),
		}

	default:
		return Outcome{
			Kind:       KindBadResponse,
			StatusCode: status,
			Body:       body,
			Message:    fmt.Sprintf("unexpected status %d", status),
		}
	}
}

// Ping checks that the upstream host accepts TCP connections. It is meant
// for readiness probes and never sends an HTTP request.
func (f *Forwarder) Ping(ctx context.Context) error {
	conn, err := f.dialer.DialContext(ctx, "tcp", f.host)
	if err != nil {
		return &ConnectionError{URL: f.endpoint, Cause: err}
	}
	return conn.Close()
}

// Close releases idle pooled connections.
func (f *Forwarder) Close() {
	f.client.CloseIdleConnections()
}
