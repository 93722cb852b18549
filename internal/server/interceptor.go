package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs each call with its procedure, outcome and duration.
// Client errors log at Debug, everything else that fails at Error.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"procedure", req.Spec().Procedure,
				"duration", time.Since(start),
			}
			if err == nil {
				slog.InfoContext(ctx, "rpc", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, "code", code.String(), "error", err)
			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				if v := connectErr.Meta().Get(ErrorCodeHeader); v != "" {
					attrs = append(attrs, "error_code", v)
				}
			}
			if code == connect.CodeInvalidArgument || code == connect.CodeNotFound {
				slog.DebugContext(ctx, "rpc rejected", attrs...)
			} else {
				slog.ErrorContext(ctx, "rpc failed", attrs...)
			}
			return resp, err
		}
	}
}
