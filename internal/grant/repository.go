package grant

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/database"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

const grantColumns = `id, patient_id, patient_organization_id, requesting_doctor_id, doctor_organization_id,
	status, reason, requested_duration, urgency_level, approval_token, rejection_token,
	granted_at, expires_at, revoked_at, access_count, last_accessed_at,
	requester_ip, approver_ip, email_sent_at, created_at, updated_at`

// Repository implements the GrantRepository interface on the access grant
// store. All state transitions go through conditional writes; there is no
// read-then-write anywhere in this file.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new access grant repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.GrantRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// Insert persists a newly created grant
func (r *Repository) Insert(ctx context.Context, g *types.PatientAccessGrant) error {
	query := `
		INSERT INTO patient_access_grants (
			id, patient_id, patient_organization_id, requesting_doctor_id, doctor_organization_id,
			status, reason, requested_duration, urgency_level, approval_token, rejection_token,
			requester_ip, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		g.ID,
		g.PatientID,
		g.PatientOrganizationID,
		g.DoctorID,
		g.DoctorOrganizationID,
		g.Status,
		g.Reason,
		g.RequestedDuration,
		g.Urgency,
		g.ApprovalToken,
		g.RejectionToken,
		g.RequesterIP,
		g.CreatedAt,
		g.UpdatedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to insert access grant")
		return fmt.Errorf("failed to insert access grant: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"grant_id":   g.ID,
		"doctor_id":  g.DoctorID,
		"patient_id": g.PatientID,
	}).Info("Created access grant request")
	return nil
}

// FindByID retrieves a grant by id
func (r *Repository) FindByID(ctx context.Context, id string) (*types.PatientAccessGrant, error) {
	query := fmt.Sprintf(`SELECT %s FROM patient_access_grants WHERE id = $1`, grantColumns)

	g, err := scanGrant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeGrantNotFound, "Access request not found")
		}
		r.logger.WithError(err).Error("Failed to query access grant")
		return nil, fmt.Errorf("failed to query access grant: %w", err)
	}

	return g, nil
}

// FindOpenForPair returns the doctor's pending request or unexpired
// approved grant for the patient, or nil when neither exists
func (r *Repository) FindOpenForPair(ctx context.Context, doctorID, patientID string, now time.Time) (*types.PatientAccessGrant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM patient_access_grants
		WHERE requesting_doctor_id = $1
		  AND patient_id = $2
		  AND (status = 'pending' OR (status = 'approved' AND expires_at > $3))
		LIMIT 1`, grantColumns)

	g, err := scanGrant(r.db.QueryRowContext(ctx, query, doctorID, patientID, now))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithError(err).Error("Failed to query open grants for pair")
		return nil, fmt.Errorf("failed to query open grants: %w", err)
	}

	return g, nil
}

// ListByDoctor retrieves a doctor's own access requests, optionally
// filtered by status
func (r *Repository) ListByDoctor(ctx context.Context, doctorID string, status types.GrantStatus) ([]*types.PatientAccessGrant, error) {
	query := fmt.Sprintf(`SELECT %s FROM patient_access_grants WHERE requesting_doctor_id = $1`, grantColumns)
	args := []interface{}{doctorID}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

// ListByPatient retrieves grants against a patient. Unless includeExpired
// is set, expired grants are omitted, including approved rows whose expiry
// has passed but which the sweep has not yet caught.
func (r *Repository) ListByPatient(ctx context.Context, patientID string, includeExpired bool) ([]*types.PatientAccessGrant, error) {
	query := fmt.Sprintf(`SELECT %s FROM patient_access_grants WHERE patient_id = $1`, grantColumns)
	if !includeExpired {
		query += ` AND status <> 'expired' AND (status <> 'approved' OR expires_at > NOW())`
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, patientID)
}

// UpdateWhereStatus atomically applies the transition while the row still
// holds the expected status, returning the updated row or nil when the
// predicate did not match. Two concurrent transition attempts cannot both
// succeed: at most one observes the expected status.
func (r *Repository) UpdateWhereStatus(ctx context.Context, id string, expected types.GrantStatus, patch *types.GrantTransition) (*types.PatientAccessGrant, error) {
	setParts := []string{"status = $1", "updated_at = NOW()"}
	args := []interface{}{patch.Status}
	argIndex := 2

	if patch.GrantedAt != nil {
		setParts = append(setParts, fmt.Sprintf("granted_at = $%d", argIndex))
		args = append(args, *patch.GrantedAt)
		argIndex++
	}

	if patch.ExpiresAt != nil {
		setParts = append(setParts, fmt.Sprintf("expires_at = $%d", argIndex))
		args = append(args, *patch.ExpiresAt)
		argIndex++
	}

	if patch.RevokedAt != nil {
		setParts = append(setParts, fmt.Sprintf("revoked_at = $%d", argIndex))
		args = append(args, *patch.RevokedAt)
		argIndex++
	}

	if patch.ApproverIP != "" {
		setParts = append(setParts, fmt.Sprintf("approver_ip = $%d", argIndex))
		args = append(args, patch.ApproverIP)
		argIndex++
	}

	if patch.ClearTokens {
		setParts = append(setParts, "approval_token = NULL", "rejection_token = NULL")
	}

	query := fmt.Sprintf(`
		UPDATE patient_access_grants SET %s
		WHERE id = $%d AND status = $%d
		RETURNING %s`,
		strings.Join(setParts, ", "), argIndex, argIndex+1, grantColumns)
	args = append(args, id, expected)

	g, err := scanGrant(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithError(err).Error("Failed to transition access grant")
		return nil, fmt.Errorf("failed to transition access grant: %w", err)
	}

	return g, nil
}

// TouchActive finds the single live approved grant for the pair and, in
// the same statement, increments its access count and stamps the access
// time. The increment is atomic at the database; concurrent checks by the
// same doctor cannot lose updates.
func (r *Repository) TouchActive(ctx context.Context, doctorID, patientID string, now time.Time) (*types.PatientAccessGrant, error) {
	query := fmt.Sprintf(`
		UPDATE patient_access_grants
		SET access_count = access_count + 1, last_accessed_at = $3
		WHERE requesting_doctor_id = $1
		  AND patient_id = $2
		  AND status = 'approved'
		  AND expires_at > $3
		RETURNING %s`, grantColumns)

	g, err := scanGrant(r.db.QueryRowContext(ctx, query, doctorID, patientID, now))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithError(err).Error("Failed to touch active grant")
		return nil, fmt.Errorf("failed to touch active grant: %w", err)
	}

	return g, nil
}

// SweepExpired conditionally moves every approved row whose expiry has
// passed to expired. Idempotent; safe to run concurrently with itself and
// with any transition.
func (r *Repository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE patient_access_grants
		SET status = 'expired', updated_at = $1
		WHERE status = 'approved' AND expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		r.logger.WithError(err).Error("Failed to sweep expired grants")
		return 0, fmt.Errorf("failed to sweep expired grants: %w", err)
	}

	swept, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return swept, nil
}

// CountByStatus counts grants in the given status
func (r *Repository) CountByStatus(ctx context.Context, status types.GrantStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patient_access_grants WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count grants: %w", err)
	}
	return count, nil
}

// RecordEmailSent stamps the notification timestamp after a successful
// delivery. Informational only; never read by business logic.
func (r *Repository) RecordEmailSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE patient_access_grants SET email_sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to record email sent: %w", err)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*types.PatientAccessGrant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list access grants")
		return nil, fmt.Errorf("failed to list access grants: %w", err)
	}
	defer rows.Close()

	var grants []*types.PatientAccessGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access grant: %w", err)
		}
		grants = append(grants, g)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access grants: %w", err)
	}

	return grants, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGrant(row rowScanner) (*types.PatientAccessGrant, error) {
	g := &types.PatientAccessGrant{}
	var (
		approvalToken, rejectionToken   sql.NullString
		requesterIP, approverIP         sql.NullString
		grantedAt, expiresAt, revokedAt sql.NullTime
		lastAccessedAt, emailSentAt     sql.NullTime
	)

	err := row.Scan(
		&g.ID,
		&g.PatientID,
		&g.PatientOrganizationID,
		&g.DoctorID,
		&g.DoctorOrganizationID,
		&g.Status,
		&g.Reason,
		&g.RequestedDuration,
		&g.Urgency,
		&approvalToken,
		&rejectionToken,
		&grantedAt,
		&expiresAt,
		&revokedAt,
		&g.AccessCount,
		&lastAccessedAt,
		&requesterIP,
		&approverIP,
		&emailSentAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if approvalToken.Valid {
		g.ApprovalToken = &approvalToken.String
	}
	if rejectionToken.Valid {
		g.RejectionToken = &rejectionToken.String
	}
	g.RequesterIP = requesterIP.String
	g.ApproverIP = approverIP.String
	g.GrantedAt = nullTime(grantedAt)
	g.ExpiresAt = nullTime(expiresAt)
	g.RevokedAt = nullTime(revokedAt)
	g.LastAccessedAt = nullTime(lastAccessedAt)
	g.EmailSentAt = nullTime(emailSentAt)

	return g, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
