package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// telemetryPaths are client-side analytics endpoints that coding agents
// call against whatever base URL they are pointed at. They are absorbed
// locally with a success response instead of being forwarded upstream.
var telemetryPaths = []string{
	"/v1/initialize",
	"/v1/log_event",
	"/v1/rgstr",
	"/statsig",
	"/telemetry",
	"/analytics",
	"/api/claude_code/metrics",
	"/claude_code/metrics",
}

// TelemetryAbsorber short-circuits analytics traffic with an empty
// success response so it never reaches a provider.
func TelemetryAbsorber() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range telemetryPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					log.Debug().Str("path", r.URL.Path).Msg("absorbed telemetry request")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusAccepted)
					_, _ = w.Write([]byte(`{"success":true}`))

					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
