package accesskit

import "context"

type subjectIDContextKey struct{}

// WithSubjectID attaches a subject identifier to ctx. Guards and per-request
// callers use it to key cached decisions before the Provider's own fetch has
// resolved a subject.
func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectIDContextKey{}, subjectID)
}

// SubjectIDFromContext returns the subject identifier attached by
// [WithSubjectID], or "" when none is present.
func SubjectIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(subjectIDContextKey{}).(string)
	return id
}
