package middleware

import (
	"net/http"

	"github.com/clywell/accesskit"
)

// Navigator redirects a request elsewhere when a route guard denies it.
// Implementations decide the redirect mechanics; [HTTPNavigator] issues
// standard HTTP redirects.
type Navigator interface {
	// Navigate sends the client to path, preserving history semantics.
	Navigate(w http.ResponseWriter, r *http.Request, path string)
	// Replace sends the client to path without a history entry.
	Replace(w http.ResponseWriter, r *http.Request, path string)
	// CurrentPath returns the path of the request being guarded.
	CurrentPath(r *http.Request) string
}

// HTTPNavigator implements [Navigator] with HTTP redirects: 302 Found for
// Navigate and 303 See Other for Replace.
type HTTPNavigator struct{}

func (HTTPNavigator) Navigate(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusFound)
}

func (HTTPNavigator) Replace(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (HTTPNavigator) CurrentPath(r *http.Request) string {
	return r.URL.Path
}

// RouteGuardConfig pairs an access check with the redirect issued on denial.
type RouteGuardConfig struct {
	// Access is the check gating the route.
	Access accesskit.AccessConfig
	// RedirectTo is the path denied requests are sent to. Default "/".
	RedirectTo string
	// Replace issues the redirect without a history entry.
	Replace bool
	// Navigator performs the redirect. Default [HTTPNavigator].
	Navigator Navigator
}

// RouteGuard returns middleware that redirects denied requests instead of
// answering them. Requests arriving while sources are still loading are
// held to the loading handler, not redirected: a redirect on transient
// loading state would bounce subjects who are actually allowed.
func RouteGuard(provider *accesskit.Provider, cfg RouteGuardConfig, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)

	if cfg.RedirectTo == "" {
		cfg.RedirectTo = "/"
	}
	if cfg.Navigator == nil {
		cfg.Navigator = HTTPNavigator{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := provider.Check(r.Context(), cfg.Access)

			if result.Loading() {
				o.loading.ServeHTTP(w, r)
				return
			}
			if !result.HasAccess {
				if o.onDeny != nil {
					o.onDeny(r, result)
				}
				if cfg.Navigator.CurrentPath(r) == cfg.RedirectTo {
					// already at the redirect target; redirecting again
					// would loop
					o.fallback.ServeHTTP(w, r)
					return
				}
				if cfg.Replace {
					cfg.Navigator.Replace(w, r, cfg.RedirectTo)
				} else {
					cfg.Navigator.Navigate(w, r, cfg.RedirectTo)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
