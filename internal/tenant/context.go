// Package tenant carries the active tenant identity through a request's
// context and scopes every database operation to it. Handlers never filter
// by tenant themselves; they go through DB.Scoped and the filter is applied
// structurally.
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoTenantContext means tenant-scoped work was attempted outside an
// established tenant context. This is a programming error (a route missing
// its resolution middleware), so callers must surface it, never mask it.
var ErrNoTenantContext = errors.New("no tenant context established")

// Context identifies the tenant the current operation acts on behalf of.
// It is established once per request (or per background job) and is never
// persisted.
type Context struct {
	ID   uuid.UUID
	Slug string
	Plan string
}

// ctxKey prevents collisions with other packages using context values.
type ctxKey struct{}

// WithContext returns a context carrying tc. Establishing a context while
// one is already active shadows the outer one for the derived subtree only.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the active tenant context, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// ID returns the active tenant id or ErrNoTenantContext.
func ID(ctx context.Context) (uuid.UUID, error) {
	tc, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, ErrNoTenantContext
	}
	return tc.ID, nil
}

// Has reports whether a tenant context is active.
func Has(ctx context.Context) bool {
	_, ok := FromContext(ctx)
	return ok
}

// RunWith executes fn with tc established. Background jobs use this to
// re-enter a tenant's scope from a queued payload; the caller's context is
// restored implicitly because the derived context never escapes fn.
func RunWith(ctx context.Context, tc Context, fn func(ctx context.Context) error) error {
	return fn(WithContext(ctx, tc))
}
