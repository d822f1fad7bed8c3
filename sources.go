package accesskit

import (
	"context"
	"errors"

	authjwt "github.com/clywell/accesskit/jwt"
)

/*
====================================
STATIC SOURCES
====================================
*/

// StaticPermissionSource returns the same [UserAccess] on every fetch.
// Useful for tests and for processes whose grants are known at startup.
func StaticPermissionSource(access UserAccess) PermissionSource {
	return PermissionSourceFunc(func(context.Context) (UserAccess, error) {
		return access, nil
	})
}

// StaticFlagSource returns the same flag list on every fetch.
func StaticFlagSource(flags []FeatureFlag) FlagSource {
	return FlagSourceFunc(func(context.Context) ([]FeatureFlag, error) {
		return flags, nil
	})
}

/*
====================================
TOKEN SOURCE
====================================
*/

// TokenPermissionSource derives subject access from a signed token. The
// token callback extracts the raw token for the current request, typically
// from an Authorization header or a cookie; claims carry the subject
// identifier, direct permission grants, and role names.
func TokenPermissionSource(manager *authjwt.Manager, token func(ctx context.Context) (string, error)) PermissionSource {
	return PermissionSourceFunc(func(ctx context.Context) (UserAccess, error) {
		if manager == nil {
			return UserAccess{}, errors.New("token permission source: nil manager")
		}
		if token == nil {
			return UserAccess{}, errors.New("token permission source: nil token callback")
		}

		raw, err := token(ctx)
		if err != nil {
			return UserAccess{}, err
		}

		claims, err := manager.ParseToken(raw)
		if err != nil {
			return UserAccess{}, err
		}

		return UserAccess{
			UserID:      claims.UID,
			Permissions: claims.Permissions,
			Roles:       claims.Roles,
		}, nil
	})
}
