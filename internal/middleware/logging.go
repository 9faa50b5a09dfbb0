package middleware

import (
	"net/http"
	"time"

	"framerelay/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request with its status, size and duration.
// /metrics scrapes are logged at debug level.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			format := "%s %s -> %d (%d bytes, %dms) from %s [%s]"
			args := []any{r.Method, r.URL.Path, status, ww.BytesWritten(),
				time.Since(start).Milliseconds(), r.RemoteAddr, middleware.GetReqID(r.Context())}

			switch {
			case r.URL.Path == "/metrics":
				log.Debug(format, args...)
			case status >= http.StatusInternalServerError:
				log.Error(format, args...)
			case status >= http.StatusBadRequest:
				log.Warning(format, args...)
			default:
				log.Info(format, args...)
			}
		})
	}
}
