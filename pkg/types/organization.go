package types

import "time"

// SubscriptionStatus represents the billing state of an organization,
// carried inside the organization settings blob
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// OrganizationSettings is the free-form settings blob attached to an
// organization. Only the subscription status is read by this subsystem;
// billing processes own the rest.
type OrganizationSettings struct {
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	SubscriptionPlan   string             `json:"subscription_plan,omitempty"`
	MaxUsers           int                `json:"max_users,omitempty"`
}

// Organization represents a tenant: an isolated hospital customer that
// owns its own users and records
type Organization struct {
	ID           string               `json:"id" db:"id"`
	Name         string               `json:"name" db:"name"`
	Subdomain    string               `json:"subdomain" db:"subdomain"`
	CustomDomain string               `json:"custom_domain,omitempty" db:"custom_domain"`
	IsActive     bool                 `json:"is_active" db:"is_active"`
	Settings     OrganizationSettings `json:"settings" db:"settings"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" db:"updated_at"`
}

// TenantSignals are the identity signals a request carries for tenant
// resolution. Later host-derived sources override earlier ones; an
// authenticated organization id beats them all.
type TenantSignals struct {
	// Claims are the authenticated caller's claims, nil for anonymous requests
	Claims *UserClaims
	// Host is the request's host header, without port
	Host string
	// HeaderOverride is the explicit subdomain override header value
	HeaderOverride string
	// QueryOverride is the explicit subdomain override query parameter value
	QueryOverride string
}

// TenantContext is the resolved organization context for a single request.
// It is attached once by the tenant resolver and never re-resolved for the
// request's lifetime.
type TenantContext struct {
	Organization *Organization
	// BrowsingOnly marks a super admin browsing context. It must never be
	// used to scope writes on behalf of that identity.
	BrowsingOnly bool
}
