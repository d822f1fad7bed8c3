package accesskit

import "errors"

var (
	// ErrBuilderUsed is returned by Build when the builder was already consumed.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrPermissionSourceRequired is returned by Build when no permission source was configured.
	ErrPermissionSourceRequired = errors.New("permission source required")
	// ErrProviderNotReady is returned by Provider operations before Build completed.
	ErrProviderNotReady = errors.New("provider not initialized")
	// ErrPermissionsUnavailable reports that the last permission fetch failed.
	ErrPermissionsUnavailable = errors.New("permissions unavailable")
	// ErrFlagsUnavailable reports that the last feature-flag fetch failed.
	ErrFlagsUnavailable = errors.New("feature flags unavailable")
	// ErrNoFlagSource is returned by flag refresh operations when no flag source was configured.
	ErrNoFlagSource = errors.New("no flag source configured")
	// ErrUnknownPermission reports a role referencing a permission that was never registered.
	ErrUnknownPermission = errors.New("unknown permission")
	// ErrAccessDenied is the sentinel guards use to signal a denied check.
	ErrAccessDenied = errors.New("access denied")
)
