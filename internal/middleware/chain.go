// Package middleware provides the request-processing chain installed in
// front of the proxy handler: request logging, authentication, model
// routing and telemetry suppression.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in order, so the first middleware is the
// outermost wrapper and sees the request first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}
