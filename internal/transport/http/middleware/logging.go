package httpmw

import (
	"log/slog"
	"net/http"
	"time"

	middlewareChi "github.com/go-chi/chi/v5/middleware"

	"github.com/Vishalkumjan/realtime-code-collab/pkg/logger"
)

// RequestLogger logs one line per request, carrying trace ids when a
// span is on the context.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middlewareChi.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		attrs := append(logger.AttrsFromCtx(r.Context()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middlewareChi.GetReqID(r.Context())),
		)
		slog.LogAttrs(r.Context(), slog.LevelInfo, "http request", attrs...)
	})
}
