package tenant

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/database"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// UserRepository implements the UserDirectory interface
type UserRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewUserRepository creates a new user directory repository
func NewUserRepository(db *database.DB, log *logger.Logger) interfaces.UserDirectory {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	query := `
		SELECT id, organization_id, email, first_name, last_name, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	user := &types.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.OrganizationID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found")
		}
		r.logger.WithError(err).Error("Failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}
