package middleware

import (
	"net/http"

	"github.com/clywell/accesskit"
)

// Option customizes a guard's behavior.
type Option func(*options)

type options struct {
	fallback http.Handler
	loading  http.Handler
	onDeny   func(r *http.Request, result accesskit.CheckResult)
}

// WithFallback sets the handler invoked when access is denied. The default
// writes 403 Forbidden.
func WithFallback(h http.Handler) Option {
	return func(o *options) {
		o.fallback = h
	}
}

// WithLoading sets the handler invoked while the provider's sources are
// still loading. The default writes 503 Service Unavailable with a
// Retry-After hint.
func WithLoading(h http.Handler) Option {
	return func(o *options) {
		o.loading = h
	}
}

// WithOnDeny sets a callback observed on every denied request, before the
// fallback handler runs.
func WithOnDeny(fn func(r *http.Request, result accesskit.CheckResult)) Option {
	return func(o *options) {
		o.onDeny = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{
		fallback: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}),
		loading: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "access state loading", http.StatusServiceUnavailable)
		}),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Guard returns middleware that admits a request only when the provider
// resolves cfg to access granted. While sources are loading the request is
// answered by the loading handler, never by the protected handler; a denied
// or unresolved check never reaches it either.
func Guard(provider *accesskit.Provider, cfg accesskit.AccessConfig, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := provider.Check(r.Context(), cfg)

			if result.Loading() {
				o.loading.ServeHTTP(w, r)
				return
			}
			if !result.HasAccess {
				if o.onDeny != nil {
					o.onDeny(r, result)
				}
				o.fallback.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GuardAll returns middleware that admits a request only when every named
// config resolves to access granted.
func GuardAll(provider *accesskit.Provider, configs map[string]accesskit.AccessConfig, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			results := provider.CheckAll(r.Context(), configs)

			for _, result := range results {
				if result.Loading() {
					o.loading.ServeHTTP(w, r)
					return
				}
				if !result.HasAccess {
					if o.onDeny != nil {
						o.onDeny(r, result)
					}
					o.fallback.ServeHTTP(w, r)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
