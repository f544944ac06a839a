package handlers

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	gorillahandlers "github.com/gorilla/handlers"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey contextKey = "request_id"
)

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Logging writes one line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		log.Printf("%s %s %d %s request_id=%s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond), RequestIDFromContext(r.Context()))
	})
}

// CORS allows browser calls from origins ("*" allows any origin) and answers
// preflight requests with 204.
func CORS(origins []string) func(http.Handler) http.Handler {
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", RequestIDHeader}),
		gorillahandlers.OptionStatusCode(http.StatusNoContent),
	)
}
