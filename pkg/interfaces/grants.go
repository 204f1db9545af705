package interfaces

import (
	"context"
	"time"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// GrantRepository defines the interface for access grant persistence.
// State transitions go through UpdateWhereStatus, a conditional write that
// only succeeds while the row still holds the expected status.
type GrantRepository interface {
	Insert(ctx context.Context, grant *types.PatientAccessGrant) error
	FindByID(ctx context.Context, id string) (*types.PatientAccessGrant, error)

	// FindOpenForPair returns the doctor's existing pending request or
	// unexpired approved grant for the patient, or nil when neither exists
	FindOpenForPair(ctx context.Context, doctorID, patientID string, now time.Time) (*types.PatientAccessGrant, error)

	ListByDoctor(ctx context.Context, doctorID string, status types.GrantStatus) ([]*types.PatientAccessGrant, error)
	ListByPatient(ctx context.Context, patientID string, includeExpired bool) ([]*types.PatientAccessGrant, error)

	// UpdateWhereStatus atomically applies the transition to the row with the
	// given id while its status still equals expected, returning the updated
	// row, or nil when the predicate did not match
	UpdateWhereStatus(ctx context.Context, id string, expected types.GrantStatus, patch *types.GrantTransition) (*types.PatientAccessGrant, error)

	// TouchActive finds the single live approved grant for the pair and, as
	// the same atomic statement, increments its access count and stamps
	// last_accessed_at. A nil result is a miss.
	TouchActive(ctx context.Context, doctorID, patientID string, now time.Time) (*types.PatientAccessGrant, error)

	// SweepExpired conditionally moves every approved row whose expiry has
	// passed to expired, returning the number of rows swept
	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	CountByStatus(ctx context.Context, status types.GrantStatus) (int, error)
	RecordEmailSent(ctx context.Context, id string, at time.Time) error
}

// GrantService owns the state machine for cross-organization patient
// access grants
type GrantService interface {
	Request(ctx context.Context, doctor *types.UserClaims, input *types.AccessRequestInput, requesterIP string) (*types.PatientAccessGrant, error)
	Approve(ctx context.Context, grantID, approvalToken, approverIP string) (*types.PatientAccessGrant, error)
	Reject(ctx context.Context, grantID, rejectionToken string) (*types.PatientAccessGrant, error)
	Revoke(ctx context.Context, grantID, requestedByPatientID string) (*types.PatientAccessGrant, error)
	Sweep(ctx context.Context) (int64, error)

	// CheckActive returns the effective access context when the doctor holds
	// a live grant for the patient, or nil on a miss. The check itself is an
	// audit event: it increments the grant's access count as a side effect,
	// so callers must invoke it exactly once per logical access.
	CheckActive(ctx context.Context, doctorID, patientID string) (*types.ActiveGrantContext, error)

	ListForDoctor(ctx context.Context, doctorID string, status types.GrantStatus) ([]*types.GrantView, error)
	ListForPatient(ctx context.Context, patientID string, includeExpired bool) ([]*types.GrantView, error)
}
