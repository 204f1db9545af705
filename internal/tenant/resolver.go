package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/monitoring"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// Resolver determines the single organization context for a request from
// its identity signals. An authenticated session's organization id always
// wins over host-derived signals, which are forgeable.
type Resolver struct {
	cfg       *config.TenantConfig
	directory interfaces.OrganizationDirectory
	logger    *logger.Logger
}

// NewResolver creates a new tenant resolver
func NewResolver(cfg *config.TenantConfig, directory interfaces.OrganizationDirectory, log *logger.Logger) *Resolver {
	return &Resolver{
		cfg:       cfg,
		directory: directory,
		logger:    log,
	}
}

// Resolve produces exactly one organization for the request or fails.
// Resolution order, first match wins; post-resolution validation applies
// regardless of which step matched.
func (r *Resolver) Resolve(ctx context.Context, signals *types.TenantSignals) (*types.TenantContext, error) {
	// Super admins bypass everything and browse against the platform's
	// earliest-created active organization. Never used for ownership.
	if signals.Claims != nil && signals.Claims.IsSuperAdmin() {
		org, err := r.directory.FindEarliestActive(ctx)
		if err != nil {
			monitoring.RecordTenantResolution("super_admin", "miss")
			return nil, err
		}
		return r.validated(org, "super_admin", true)
	}

	// A session's organization id is the only signal guaranteed correct
	// once authenticated.
	if signals.Claims != nil && signals.Claims.OrganizationID != "" {
		org, err := r.directory.FindByID(ctx, signals.Claims.OrganizationID)
		if err != nil {
			monitoring.RecordTenantResolution("session", "miss")
			return nil, err
		}
		return r.validated(org, "session", false)
	}

	subdomain := r.candidateSubdomain(signals)

	org, err := r.directory.FindBySubdomainOrCustomDomain(ctx, subdomain, signals.Host)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		// Fall back to the well-known default organization only when the
		// derived subdomain was the placeholder, or nothing was derived.
		if subdomain != "" && subdomain != r.cfg.DefaultSubdomain {
			monitoring.RecordTenantResolution("host", "miss")
			return nil, types.NewNotFoundError(types.ErrCodeTenantNotFound,
				fmt.Sprintf("No organization found for %q", subdomain))
		}
		org, err = r.directory.FindEarliestActive(ctx)
		if err != nil {
			monitoring.RecordTenantResolution("default", "miss")
			return nil, err
		}
		return r.validated(org, "default", false)
	}

	return r.validated(org, "host", false)
}

// ResolveOptional is the variant for public endpoints: identical
// precedence, but any failure falls through to no tenant
func (r *Resolver) ResolveOptional(ctx context.Context, signals *types.TenantSignals) *types.TenantContext {
	tc, err := r.Resolve(ctx, signals)
	if err != nil {
		return nil
	}
	return tc
}

// candidateSubdomain derives the tenant subdomain from the request host,
// then lets the override header and query parameter each replace it in
// turn, to support local development without DNS
func (r *Resolver) candidateSubdomain(signals *types.TenantSignals) string {
	subdomain := SubdomainFromHost(signals.Host)

	if signals.HeaderOverride != "" {
		subdomain = strings.ToLower(signals.HeaderOverride)
	}
	if signals.QueryOverride != "" {
		subdomain = strings.ToLower(signals.QueryOverride)
	}

	return subdomain
}

// validated applies the post-resolution checks every resolution path must
// pass: the organization must be active and its subscription must be
// neither suspended nor cancelled.
func (r *Resolver) validated(org *types.Organization, source string, browsing bool) (*types.TenantContext, error) {
	if !org.IsActive {
		monitoring.RecordTenantResolution(source, "inactive")
		return nil, types.NewForbiddenError(types.ErrCodeTenantInactive,
			fmt.Sprintf("Organization %s is deactivated", org.Name))
	}

	switch org.Settings.SubscriptionStatus {
	case types.SubscriptionSuspended:
		monitoring.RecordTenantResolution(source, "suspended")
		return nil, types.NewForbiddenError(types.ErrCodeTenantSuspended,
			fmt.Sprintf("Organization %s is suspended; contact billing to restore access", org.Name))
	case types.SubscriptionCancelled:
		monitoring.RecordTenantResolution(source, "cancelled")
		return nil, types.NewForbiddenError(types.ErrCodeTenantCancelled,
			fmt.Sprintf("Organization %s has cancelled its subscription", org.Name))
	}

	monitoring.RecordTenantResolution(source, "ok")
	return &types.TenantContext{Organization: org, BrowsingOnly: browsing}, nil
}

// SubdomainFromHost extracts the first host label as the candidate
// subdomain. A bare "www" on a short host is not a tenant.
func SubdomainFromHost(host string) string {
	host = stripPort(host)
	if host == "" {
		return ""
	}

	labels := strings.Split(host, ".")
	first := strings.ToLower(labels[0])
	if first == "www" && len(labels) < 3 {
		return ""
	}
	return first
}

func stripPort(host string) string {
	if i := strings.LastIndex(host, ":"); i != -1 {
		return host[:i]
	}
	return host
}

func isNotFound(err error) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Type == types.ErrorTypeNotFound
}
