package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/relay/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// with a generic JSON error body. The panic and its stack trace are logged;
// neither reaches the client.
//
// http.ErrAbortHandler is re-panicked so net/http can abort the response as
// intended. When the handler had already started its response, the panic is
// only logged and the connection is aborted the same way, so the client never
// takes a partial reply for a complete one.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
				"response_started", rw.written,
			)
			if rw.written {
				panic(http.ErrAbortHandler)
			}

			resp := types.NewErrorResponse(http.StatusInternalServerError, types.MessageInternalError, nil)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.StatusCode)
			_, _ = w.Write(resp.Body)
		}()

		next.ServeHTTP(rw, r)
	})
}
