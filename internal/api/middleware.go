package api

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"carrental/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// accessLog logs every request with its status and latency and feeds the
// HTTP metrics. Requests are labelled with the route template so ids do not
// explode metric cardinality.
func accessLog(logger *zerolog.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			snoop := httpsnoop.CaptureMetrics(next, w, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tmpl, err := cur.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			m.ObserveHTTP(r.Method, route, snoop.Code, snoop.Duration)

			evt := logger.Info()
			if snoop.Code >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", route).
				Int("status", snoop.Code).
				Int64("bytes", snoop.Written).
				Dur("duration", snoop.Duration).
				Msg("http request")
		})
	}
}
