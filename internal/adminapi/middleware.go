// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package adminapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/rfid-ingest/core/pkg/log"
)

var rateLimitedErr = errors.New("rate limit exceeded")

// Wrap applies the same middleware stack the teacher's UI server uses
// (compression, CORS, recovery, access logging), plus a token-bucket rate
// limit in front of the admin API: register/process_batch can be driven
// by a misbehaving external collaborator, and there's no backpressure
// signal above HTTP for that caller the way there is for Adapters.
func Wrap(r *mux.Router, requestsPerSecond float64, burst int) http.Handler {
	r.Use(handlers.CompressHandler)
	r.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST"}),
		handlers.AllowedOrigins([]string{"*"}),
	))
	r.Use(handlers.RecoveryHandler())
	r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(requestsPerSecond), burst)))

	return handlers.CustomLoggingHandler(log.InfoWriter, r, func(w io.Writer, params handlers.LogFormatterParams) {
		scoped.Infof("%s %s (response %d, %d bytes)", params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
	})
}

func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				handleError(rateLimitedErr, http.StatusTooManyRequests, rw)
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}
