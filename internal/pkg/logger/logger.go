// Package logger provides structured logging with correlation ID support.
//
// Every log line written through a context carries the request id, the
// authenticated wallet id and the active trace/span, so one journal posting
// can be followed across the HTTP adapter, the use case and the outbox.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey is the context key for the per-request id.
	RequestIDKey contextKey = "request_id"
	// WalletIDKey is the context key for the authenticated wallet id.
	WalletIDKey contextKey = "wallet_id"
	// APIKeyIDKey is the context key for the authenticated API key id.
	APIKeyIDKey contextKey = "api_key_id"
	// TraceIDKey is the context key for the OpenTelemetry trace id.
	TraceIDKey contextKey = "trace_id"
	// SpanIDKey is the context key for the OpenTelemetry span id.
	SpanIDKey contextKey = "span_id"
)

// Config holds logger configuration.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json, text
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns the production defaults: info-level JSON on stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

// New creates a slog.Logger with the given configuration.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(&ContextHandler{handler: handler})
}

// Setup initializes the global logger.
func Setup(cfg *Config) {
	slog.SetDefault(New(cfg))
}

// ContextHandler wraps a slog.Handler to extract correlation data from the
// context on every record.
type ContextHandler struct {
	handler slog.Handler
}

// Enabled reports whether the handler handles records at the given level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds correlation data from context to the log record.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID := GetRequestID(ctx); requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if walletID := GetWalletID(ctx); walletID != "" {
		r.AddAttrs(slog.String("wallet_id", walletID))
	}
	if apiKeyID := GetAPIKeyID(ctx); apiKeyID != "" {
		r.AddAttrs(slog.String("api_key_id", apiKeyID))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		r.AddAttrs(slog.String("span_id", spanID))
	}

	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new handler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new handler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}

// WithRequestID adds the request id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID extracts the request id from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithWalletID adds the authenticated wallet id to the context.
func WithWalletID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, WalletIDKey, id)
}

// GetWalletID extracts the wallet id from the context.
func GetWalletID(ctx context.Context) string {
	if id, ok := ctx.Value(WalletIDKey).(string); ok {
		return id
	}
	return ""
}

// WithAPIKeyID adds the authenticated API key id to the context.
func WithAPIKeyID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, APIKeyIDKey, id)
}

// GetAPIKeyID extracts the API key id from the context.
func GetAPIKeyID(ctx context.Context) string {
	if id, ok := ctx.Value(APIKeyIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTraceID adds the trace id to the context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// GetTraceID extracts the trace id from the context.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSpanID adds the span id to the context.
func WithSpanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SpanIDKey, id)
}

// GetSpanID extracts the span id from the context.
func GetSpanID(ctx context.Context) string {
	if id, ok := ctx.Value(SpanIDKey).(string); ok {
		return id
	}
	return ""
}
