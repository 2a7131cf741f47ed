// Package middleware holds the HTTP middleware of the trigger and dashboard surface.
package middleware

import "net/http"

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middleware into a single Middleware.
// Chain(mw1, mw2)(handler) results in mw1(mw2(handler)), so mw1 executes first.
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}

// Handle wraps a handler function with mws.
func Handle(h http.HandlerFunc, mws ...Middleware) http.Handler {
	return Chain(mws...)(h)
}
