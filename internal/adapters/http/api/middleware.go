package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/metrics"
)

// Metric series written by the HTTP layer.
const (
	MetricHTTPRequests = "http.requests"
	MetricHTTPLatency  = "http.request"
	MetricHTTPErrors   = "http.errors"
)

// HTTP status code thresholds.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusTooManyRequests = 429
	statusInternalError   = 500
)

// instrument wraps a handler to record request metrics in the aggregator.
func (s *Server) instrument(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(wrapped.statusCode)

		s.metrics.Increment(MetricHTTPRequests, metrics.Labels{"endpoint": endpoint, "method": r.Method, "status": status})
		s.metrics.RecordLatency(MetricHTTPLatency, durationMs, metrics.Labels{"endpoint": endpoint, "method": r.Method})

		if wrapped.statusCode >= statusBadRequest {
			s.metrics.Increment(MetricHTTPErrors, metrics.Labels{
				"endpoint":   endpoint,
				"error_type": getErrorType(wrapped.statusCode),
				"severity":   getErrorSeverity(wrapped.statusCode),
			})
		}
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// getErrorSeverity returns error severity based on HTTP status code.
func getErrorSeverity(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "high"
	case statusCode >= statusBadRequest:
		return "medium"
	default:
		return "low"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
