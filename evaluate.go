package accesskit

// HasFeature reports whether key resolves to an enabled flag in flags.
// Matching is exact-string equality against ID or Name, first match wins.
func HasFeature(flags []FeatureFlag, key string) bool {
	f, ok := FindFlag(flags, key)
	return ok && f.Enabled
}

// HasAnyFeature reports whether at least one key resolves to an enabled
// flag. An empty key list is false.
func HasAnyFeature(flags []FeatureFlag, keys []string) bool {
	for _, k := range keys {
		if HasFeature(flags, k) {
			return true
		}
	}
	return false
}

// HasAllFeatures reports whether every key resolves to an enabled flag.
// An empty key list is vacuously true.
func HasAllFeatures(flags []FeatureFlag, keys []string) bool {
	for _, k := range keys {
		if !HasFeature(flags, k) {
			return false
		}
	}
	return true
}

// HasPermission reports whether perm is a member of the permission set.
func HasPermission(perms []string, perm string) bool {
	if perm == "" {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one wanted permission is held.
// An empty wanted list is false.
func HasAnyPermission(perms []string, wanted []string) bool {
	for _, w := range wanted {
		if HasPermission(perms, w) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every wanted permission is held.
// An empty wanted list is vacuously true.
func HasAllPermissions(perms []string, wanted []string) bool {
	for _, w := range wanted {
		if !HasPermission(perms, w) {
			return false
		}
	}
	return true
}

// Evaluate computes the access decision for one [AccessConfig] against the
// given flag list and permission set. It is a pure function of its three
// inputs and never has side effects.
//
// Each side of the config resolves in declaration order — single, any-of,
// all-of — and a side with no check requested defaults to true (pass-through,
// not a grant). The final HasAccess combines the two sides:
//
//   - neither check requested: false, regardless of RequireBoth;
//   - both requested: AND when RequireBoth, OR otherwise;
//   - one requested: that side's result alone decides.
func Evaluate(flags []FeatureFlag, perms []string, cfg AccessConfig) Decision {
	d := Decision{
		HasFeatureAccess:    true,
		HasPermissionAccess: true,
	}

	switch {
	case cfg.Feature != "":
		d.HasFeatureCheck = true
		d.HasFeatureAccess = HasFeature(flags, cfg.Feature)
	case len(cfg.AnyFeature) > 0:
		d.HasFeatureCheck = true
		d.HasFeatureAccess = HasAnyFeature(flags, cfg.AnyFeature)
	case len(cfg.AllFeatures) > 0:
		d.HasFeatureCheck = true
		d.HasFeatureAccess = HasAllFeatures(flags, cfg.AllFeatures)
	}

	switch {
	case cfg.Permission != "":
		d.HasPermissionCheck = true
		d.HasPermissionAccess = HasPermission(perms, cfg.Permission)
	case len(cfg.AnyPermission) > 0:
		d.HasPermissionCheck = true
		d.HasPermissionAccess = HasAnyPermission(perms, cfg.AnyPermission)
	case len(cfg.AllPermissions) > 0:
		d.HasPermissionCheck = true
		d.HasPermissionAccess = HasAllPermissions(perms, cfg.AllPermissions)
	}

	switch {
	case !d.HasFeatureCheck && !d.HasPermissionCheck:
		// deny-by-default: nothing was asked, nothing is granted
		d.HasAccess = false
	case d.HasFeatureCheck && d.HasPermissionCheck:
		if cfg.RequireBoth {
			d.HasAccess = d.HasFeatureAccess && d.HasPermissionAccess
		} else {
			d.HasAccess = d.HasFeatureAccess || d.HasPermissionAccess
		}
	case d.HasFeatureCheck:
		d.HasAccess = d.HasFeatureAccess
	default:
		d.HasAccess = d.HasPermissionAccess
	}

	return d
}
