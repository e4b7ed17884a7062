// Package tenancy provides organization-scoped context resolution, the
// organization and feature-flag records, and the feature gating used by the
// read API. Organization scope is passed explicitly through context.Context
// into every core operation; nothing is resolved ambiently.
package tenancy

import "context"

// ctxKey is an unexported type used as the context key for OrgContext.
type ctxKey struct{}

// OrgContext carries the resolved organization and viewer information
// through request context.
type OrgContext struct {
	OrgID    string
	User     string
	ReadOnly bool
}

// WithOrg returns a new context with the given OrgContext attached.
func WithOrg(ctx context.Context, oc OrgContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, oc)
}

// OrgFromContext retrieves the OrgContext from the context.
// Returns the zero value and false if no organization is set.
func OrgFromContext(ctx context.Context) (OrgContext, bool) {
	oc, ok := ctx.Value(ctxKey{}).(OrgContext)
	return oc, ok
}

// OrgIDFromContext is a convenience function that returns the organization id
// from the context, or "" if no org context is set.
func OrgIDFromContext(ctx context.Context) string {
	oc, ok := OrgFromContext(ctx)
	if !ok {
		return ""
	}
	return oc.OrgID
}
