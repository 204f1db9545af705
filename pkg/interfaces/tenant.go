package interfaces

import (
	"context"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// OrganizationDirectory defines the interface for tenant directory lookups.
// The directory is read-mostly from this subsystem's point of view.
type OrganizationDirectory interface {
	FindByID(ctx context.Context, id string) (*types.Organization, error)
	// FindBySubdomainOrCustomDomain matches an organization whose subdomain
	// equals subdomain or whose custom domain exactly equals host
	FindBySubdomainOrCustomDomain(ctx context.Context, subdomain, host string) (*types.Organization, error)
	FindEarliestActive(ctx context.Context) (*types.Organization, error)
}

// UserDirectory defines the interface for user lookups consumed by the
// authorization subsystem
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// TenantResolver resolves the single organization context for a request's
// identity signals
type TenantResolver interface {
	// Resolve returns the tenant context or fails with a typed error.
	// The resolved tenant is fixed for the request's lifetime.
	Resolve(ctx context.Context, signals *types.TenantSignals) (*types.TenantContext, error)
	// ResolveOptional is the variant for public endpoints: identical
	// precedence, but any failure falls through to no tenant
	ResolveOptional(ctx context.Context, signals *types.TenantSignals) *types.TenantContext
}
