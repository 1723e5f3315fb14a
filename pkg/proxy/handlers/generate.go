package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/metrics"
	"mercator-hq/relay/pkg/upstream"
)

// Forwarder sends a validated request upstream. *upstream.Forwarder
// implements it.
type Forwarder interface {
	Forward(ctx context.Context, req *types.InboundRequest) upstream.Outcome
}

// ExchangeSink receives a summary of every forwarded request after the
// caller's response has been written. Observe must not block.
type ExchangeSink interface {
	Observe(ctx context.Context, ex types.Exchange)
}

// GenerateOptions configures a GenerateHandler. The zero value is usable.
type GenerateOptions struct {
	// MaxBodyBytes limits the inbound body (default 1MB).
	MaxBodyBytes int64

	// Metrics records request outcomes. May be nil.
	Metrics *metrics.Collector

	// Sinks are notified of every forwarded request.
	Sinks []ExchangeSink

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// GenerateHandler serves POST /api/gemini: it validates the caller payload,
// forwards it upstream once and relays the outcome.
type GenerateHandler struct {
	forwarder    Forwarder
	maxBodyBytes int64
	metrics      *metrics.Collector
	sinks        []ExchangeSink
	logger       *slog.Logger
	now          func() time.Time
}

// NewGenerateHandler creates a GenerateHandler.
func NewGenerateHandler(forwarder Forwarder, opts GenerateOptions) *GenerateHandler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = proxy.DefaultMaxRequestBodySize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &GenerateHandler{
		forwarder:    forwarder,
		maxBodyBytes: opts.MaxBodyBytes,
		metrics:      opts.Metrics,
		sinks:        opts.Sinks,
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.write(ctx, w, types.NewErrorResponse(http.StatusMethodNotAllowed, types.MessageMethodNotAllowed, nil))
		return
	}

	done := h.metrics.TrackInflight()
	defer done()

	req, err := proxy.ParseInboundRequest(r, h.maxBodyBytes)
	if err != nil {
		resp := proxy.ErrorResponse(err)
		reason := proxy.ValidationReason(err)

		h.logger.WarnContext(ctx, "request rejected",
			"reason", reason,
			"status", resp.StatusCode,
			"error", err,
		)
		h.metrics.RecordValidationFailure(reason, resp.StatusCode)
		h.write(ctx, w, resp)
		return
	}

	ctx = logging.WithAttrs(ctx,
		slog.String("user_id", req.UserID),
		slog.String("session_id", req.SessionID),
	)

	outcome := h.forwarder.Forward(ctx, req)
	resp := outcome.Response()
	h.write(ctx, w, resp)

	h.logOutcome(ctx, outcome, resp.StatusCode)
	h.metrics.RecordExchange(outcome.Kind.String(), resp.StatusCode, outcome.Latency)
	h.notify(ctx, req, outcome, resp.StatusCode)
}

func (h *GenerateHandler) write(ctx context.Context, w http.ResponseWriter, resp types.CallerResponse) {
	if err := proxy.WriteCallerResponse(w, resp); err != nil {
		h.logger.DebugContext(ctx, "failed to write response", "error", err)
	}
}

func (h *GenerateHandler) logOutcome(ctx context.Context, outcome upstream.Outcome, status int) {
	attrs := []any{
		"outcome", outcome.Kind.String(),
		"status", status,
		"upstream_latency_ms", outcome.Latency.Milliseconds(),
	}
	if outcome.StatusCode != 0 {
		attrs = append(attrs, "upstream_status", outcome.StatusCode)
	}
	if err := outcome.Err(); err != nil {
		attrs = append(attrs, "error", err)
	}

	level := slog.LevelInfo
	switch outcome.Kind {
	case upstream.KindApplicationError, upstream.KindCanceled:
		level = slog.LevelWarn
	case upstream.KindTimeout, upstream.KindConnectionFailure, upstream.KindBadResponse:
		level = slog.LevelError
	}

	h.logger.Log(ctx, level, "upstream request completed", attrs...)
}

func (h *GenerateHandler) notify(ctx context.Context, req *types.InboundRequest, outcome upstream.Outcome, status int) {
	if len(h.sinks) == 0 {
		return
	}

	digest, chars := types.PromptFingerprint(req.Prompt)
	ex := types.Exchange{
		RequestID:       middleware.GetRequestID(ctx),
		UserID:          req.UserID,
		SessionID:       req.SessionID,
		PromptSHA256:    digest,
		PromptChars:     chars,
		Outcome:         outcome.Kind.String(),
		StatusCode:      status,
		UpstreamLatency: outcome.Latency,
		Timestamp:       h.now().UTC(),
	}
	if err := outcome.Err(); err != nil {
		ex.Error = err.Error()
	}

	// Sinks outlive the request; a caller disconnect must not cancel them.
	sinkCtx := context.WithoutCancel(ctx)
	for _, sink := range h.sinks {
		sink.Observe(sinkCtx, ex)
	}
}
