package middleware

import "net/http"

// Middleware represents a middleware function
type Middleware func(http.Handler) http.Handler

// Chain represents a middleware chain
type Chain struct {
	middlewares []Middleware
}

// New creates a new middleware chain
func New(middlewares ...Middleware) Chain {
	return Chain{middlewares: middlewares}
}

// Then adds more middleware to the chain
func (c Chain) Then(middlewares ...Middleware) Chain {
	return Chain{middlewares: append(c.middlewares, middlewares...)}
}

// Handler applies all middleware in the chain to the given handler
func (c Chain) Handler(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}

	return handler
}
