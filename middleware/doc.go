// Package middleware provides net/http guards over an accesskit Provider.
//
// Guard wraps a handler so only requests passing an access check reach it;
// RouteGuard redirects denied requests instead. Both hold requests at a
// loading handler while the provider's sources are unresolved, so a slow
// first fetch surfaces as 503, never as a false denial.
package middleware
