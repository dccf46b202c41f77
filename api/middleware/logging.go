package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

// Logging records request.start and request.complete. Health probes and
// metrics scrapes are logged at debug so they do not drown the access log.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			log := logg.Info
			if quietPath(r.URL.Path) {
				log = logg.Debug
			}

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			log(ctx, "request.start")

			next.ServeHTTP(rec, r.WithContext(ctx))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"status":      rec.status,
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			log(ctx, "request.complete")
		})
	}
}

func quietPath(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health/")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
