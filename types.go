package accesskit

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/clywell/accesskit/internal/audit"
)

// FeatureFlag is a named boolean toggle, optionally categorized, controlling
// visibility of a piece of functionality. Flags are held as a sequence, not a
// map: lookups scan in order and match on ID first, then Name, per element.
type FeatureFlag struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Enabled  bool   `json:"enabled"`
	Category string `json:"category,omitempty"`
}

// FindFlag returns the first flag whose ID or Name equals key. List order is
// significant: when an unrelated flag's Name collides with another flag's ID,
// the earlier element wins.
func FindFlag(flags []FeatureFlag, key string) (FeatureFlag, bool) {
	if key == "" {
		return FeatureFlag{}, false
	}
	for _, f := range flags {
		if f.ID == key || f.Name == key {
			return f, true
		}
	}
	return FeatureFlag{}, false
}

// UserAccess is the full subject record returned by a [PermissionSource]:
// the subject identifier, the direct permission grants, and the role names
// the Provider expands through its role table.
type UserAccess struct {
	UserID      string   `json:"userId"`
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles,omitempty"`
}

// AccessConfig describes one access-check request. The three feature fields
// and three permission fields are each resolved in declaration order: single,
// any-of, all-of; the first populated field on a side defines that side's
// check. RequireBoth selects AND (instead of the default OR) when both a
// feature check and a permission check are requested.
type AccessConfig struct {
	Feature     string   `json:"feature,omitempty"`
	AnyFeature  []string `json:"anyFeature,omitempty"`
	AllFeatures []string `json:"allFeatures,omitempty"`

	Permission     string   `json:"permission,omitempty"`
	AnyPermission  []string `json:"anyPermission,omitempty"`
	AllPermissions []string `json:"allPermissions,omitempty"`

	RequireBoth bool `json:"requireBoth,omitempty"`
}

// Empty reports whether the config requests no feature check and no
// permission check. An empty config always evaluates to deny.
func (c AccessConfig) Empty() bool {
	return c.Feature == "" && len(c.AnyFeature) == 0 && len(c.AllFeatures) == 0 &&
		c.Permission == "" && len(c.AnyPermission) == 0 && len(c.AllPermissions) == 0
}

// Decision is the pure result of evaluating one [AccessConfig] against a
// flag list and a permission set. HasFeatureCheck/HasPermissionCheck record
// whether a check was actually requested, disambiguating "passed because
// satisfied" from "passed because irrelevant".
type Decision struct {
	HasAccess           bool `json:"hasAccess"`
	HasFeatureAccess    bool `json:"hasFeatureAccess"`
	HasPermissionAccess bool `json:"hasPermissionAccess"`
	HasFeatureCheck     bool `json:"hasFeatureCheck"`
	HasPermissionCheck  bool `json:"hasPermissionCheck"`
}

// CheckResult is returned by [Provider.Check]. While either source is still
// loading the embedded Decision is unresolved and denies.
type CheckResult struct {
	Decision

	PermissionsLoading bool `json:"permissionsLoading,omitempty"`
	FlagsLoading       bool `json:"flagsLoading,omitempty"`

	// Cached reports that the decision was served from the result cache.
	Cached bool `json:"cached,omitempty"`

	// Debug is populated only when Config.Debug.IncludeSnapshots is set.
	Debug *DebugSnapshot `json:"debug,omitempty"`
}

// Loading reports whether either data source is still loading.
func (r CheckResult) Loading() bool {
	return r.PermissionsLoading || r.FlagsLoading
}

// DebugSnapshot captures the inputs behind one decision for diagnostics.
type DebugSnapshot struct {
	SubjectID   string       `json:"subjectId"`
	Permissions []string     `json:"permissions"`
	Roles       []string     `json:"roles,omitempty"`
	Flags       []FeatureFlag `json:"flags,omitempty"`
	Config      AccessConfig `json:"config"`
	EvaluatedAt time.Time    `json:"evaluatedAt"`
}

// State is a point-in-time snapshot of the Provider's fetched data and
// per-source loading/error status, returned by [Provider.State].
type State struct {
	SubjectID   string
	Permissions []string
	Roles       []string
	Flags       []FeatureFlag

	PermissionsLoading bool
	FlagsLoading       bool
	PermissionsErr     error
	FlagsErr           error

	LoadedAt time.Time
}

// PermissionSource supplies the current subject's permission set, roles, and
// identifier. Implementations must honor ctx cancellation: a fetch abandoned
// by the Provider should return promptly.
type PermissionSource interface {
	FetchUserAccess(ctx context.Context) (UserAccess, error)
}

// PermissionSourceFunc adapts a function to the [PermissionSource] interface.
type PermissionSourceFunc func(ctx context.Context) (UserAccess, error)

// FetchUserAccess calls f.
func (f PermissionSourceFunc) FetchUserAccess(ctx context.Context) (UserAccess, error) {
	return f(ctx)
}

// FlagSource supplies the current feature-flag list.
type FlagSource interface {
	FetchFeatureFlags(ctx context.Context) ([]FeatureFlag, error)
}

// FlagSourceFunc adapts a function to the [FlagSource] interface.
type FlagSourceFunc func(ctx context.Context) ([]FeatureFlag, error)

// FetchFeatureFlags calls f.
func (f FlagSourceFunc) FetchFeatureFlags(ctx context.Context) ([]FeatureFlag, error) {
	return f(ctx)
}

// AuditEvent is a structured decision record emitted by the Provider.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the Provider's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
