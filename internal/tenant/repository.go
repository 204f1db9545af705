package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/database"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

const organizationColumns = `id, name, subdomain, custom_domain, is_active, settings, created_at, updated_at`

// Repository implements the OrganizationDirectory interface
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new tenant directory repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.OrganizationDirectory {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// FindByID retrieves an organization by its id
func (r *Repository) FindByID(ctx context.Context, id string) (*types.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE id = $1`, organizationColumns)
	return r.scanOne(ctx, query, id)
}

// FindBySubdomainOrCustomDomain retrieves an organization matching either
// the subdomain or an exact custom domain equal to the request host
func (r *Repository) FindBySubdomainOrCustomDomain(ctx context.Context, subdomain, host string) (*types.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE subdomain = $1 OR custom_domain = $2 LIMIT 1`, organizationColumns)
	return r.scanOne(ctx, query, subdomain, host)
}

// FindEarliestActive retrieves the platform's earliest-created active
// organization
func (r *Repository) FindEarliestActive(ctx context.Context) (*types.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE is_active = TRUE ORDER BY created_at ASC LIMIT 1`, organizationColumns)
	return r.scanOne(ctx, query)
}

func (r *Repository) scanOne(ctx context.Context, query string, args ...interface{}) (*types.Organization, error) {
	org := &types.Organization{}
	var customDomain sql.NullString
	var settings []byte

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&org.ID,
		&org.Name,
		&org.Subdomain,
		&customDomain,
		&org.IsActive,
		&settings,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeTenantNotFound, "Organization not found")
		}
		r.logger.WithError(err).Error("Failed to query organization")
		return nil, fmt.Errorf("failed to query organization: %w", err)
	}

	org.CustomDomain = customDomain.String

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &org.Settings); err != nil {
			r.logger.WithOrganization(org.ID).WithError(err).Warn("Failed to decode organization settings")
		}
	}

	return org, nil
}
