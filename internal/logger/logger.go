package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenancy/internal/auth"
)

// RequestIDHeader is echoed back on every RPC response.
const RequestIDHeader = "X-Request-Id"

// Config controls the process logger.
type Config struct {
	// Level is a zerolog level name. Empty means info, or debug when Console is set.
	Level string
	// Console switches from JSON lines to human readable output with stack traces.
	Console bool
	// Out defaults to stderr.
	Out io.Writer
}

// New builds the process logger.
func New(cfg Config) (zerolog.Logger, error) {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if cfg.Console {
		level = zerolog.DebugLevel
	}
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Console {
		ctx = ctx.Caller().Stack()
	}
	return ctx.Logger(), nil
}

// levelFor maps an RPC outcome to a log level. Caller mistakes are routine,
// server faults are errors.
func levelFor(err error) zerolog.Level {
	if err == nil {
		return zerolog.InfoLevel
	}
	switch connect.CodeOf(err) {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return zerolog.ErrorLevel
	case connect.CodeCanceled, connect.CodeDeadlineExceeded, connect.CodeResourceExhausted:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

var _ connect.Interceptor = (*RequestLogger)(nil)

// RequestLogger gives every handled RPC a request id and a context logger,
// then logs one line with the outcome.
type RequestLogger struct {
	logger zerolog.Logger
}

func NewRequestLogger(logger zerolog.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

func (l *RequestLogger) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}

		requestID := req.Header().Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		fields := l.logger.With().
			Str("request_id", requestID).
			Str("procedure", req.Spec().Procedure).
			Str("protocol", req.Peer().Protocol).
			Str("peer", req.Peer().Addr)
		if caller, ok := auth.CallerFromContext(ctx); ok {
			fields = fields.Str("caller_id", caller.UserID).Str("auth_method", caller.Method)
		}
		reqLogger := fields.Logger()
		ctx = reqLogger.WithContext(ctx)

		start := time.Now()
		resp, err := next(ctx, req)

		event := reqLogger.WithLevel(levelFor(err)).Dur("duration", time.Since(start))
		if err != nil {
			event = event.Err(err).Stringer("code", connect.CodeOf(err))
			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				connectErr.Meta().Set(RequestIDHeader, requestID)
			}
		} else if resp != nil {
			resp.Header().Set(RequestIDHeader, requestID)
		}
		event.Msg("rpc call")

		return resp, err
	}
}

// Streaming RPCs are not served, both wrappers pass through.
func (l *RequestLogger) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (l *RequestLogger) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
