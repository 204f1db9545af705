package grant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/monitoring"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// collapsedMessage is returned for every token mismatch and unknown-grant
// condition on the tokened paths. The conditions are deliberately
// indistinguishable to prevent token enumeration.
const collapsedMessage = "Access request not found or already processed"

// Service owns the state machine for cross-organization patient access
// grants. No other component writes grant rows.
type Service struct {
	cfg      *config.Config
	logger   *logger.Logger
	repo     interfaces.GrantRepository
	users    interfaces.UserDirectory
	notifier interfaces.GrantNotifier
	now      func() time.Time
}

// NewService creates a new grant lifecycle service
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo interfaces.GrantRepository,
	users interfaces.UserDirectory,
	notifier interfaces.GrantNotifier,
) *Service {
	return &Service{
		cfg:      cfg,
		logger:   log,
		repo:     repo,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// Request creates a pending cross-organization access request by the
// authenticated doctor for the given patient
func (s *Service) Request(ctx context.Context, doctor *types.UserClaims, input *types.AccessRequestInput, requesterIP string) (*types.PatientAccessGrant, error) {
	if err := s.validateRequest(input); err != nil {
		return nil, err
	}

	patient, err := s.users.GetByID(ctx, input.PatientID)
	if err != nil {
		if isNotFound(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Patient not found")
		}
		return nil, err
	}

	if patient.Role != types.RolePatient || !patient.IsActive {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Patient not found")
	}

	// Same-tenant access never uses this mechanism; ordinary in-tenant
	// authorization covers it.
	if patient.OrganizationID == doctor.OrganizationID {
		monitoring.RecordGrantTransition("request", "same_org")
		return nil, types.NewValidationError(types.ErrCodeSameOrganization,
			"Patient belongs to your organization; cross-organization access is not required", nil)
	}

	now := s.now()

	existing, err := s.repo.FindOpenForPair(ctx, doctor.UserID, input.PatientID, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		monitoring.RecordGrantTransition("request", "duplicate")
		details := map[string]interface{}{
			"existing_request_id": existing.ID,
			"status":              existing.Status,
		}
		if existing.ExpiresAt != nil {
			details["expires_at"] = existing.ExpiresAt
		}
		return nil, types.NewConflictError(types.ErrCodeDuplicateGrant,
			"An open access request for this patient already exists", details)
	}

	approvalToken, err := NewToken(s.cfg.Grants.TokenBytes)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to create access request", err)
	}
	rejectionToken, err := NewToken(s.cfg.Grants.TokenBytes)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to create access request", err)
	}

	g := &types.PatientAccessGrant{
		ID:                    uuid.New().String(),
		PatientID:             patient.ID,
		PatientOrganizationID: patient.OrganizationID,
		DoctorID:              doctor.UserID,
		DoctorOrganizationID:  doctor.OrganizationID,
		Status:                types.GrantPending,
		Reason:                strings.TrimSpace(input.Reason),
		RequestedDuration:     input.Duration,
		Urgency:               input.Urgency,
		ApprovalToken:         &approvalToken,
		RejectionToken:        &rejectionToken,
		RequesterIP:           requesterIP,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	// Persisting the grant is the durability boundary. Notification
	// failures past this point never surface to the caller.
	if err := s.repo.Insert(ctx, g); err != nil {
		monitoring.RecordGrantTransition("request", "error")
		return nil, err
	}

	monitoring.RecordGrantTransition("request", "ok")
	s.logger.Audit(doctor.UserID, "access_grant.request", g.ID, true, map[string]interface{}{
		"patient_id":     patient.ID,
		"patient_org_id": patient.OrganizationID,
		"doctor_org_id":  doctor.OrganizationID,
		"urgency":        g.Urgency,
		"duration":       g.RequestedDuration,
	})

	if s.notifier != nil {
		s.notifier.AccessRequested(g, patient)
	}

	return g, nil
}

// Approve transitions a pending grant to approved on a matching approval
// token. Idempotent on the already-approved case: repeated clicks on the
// same email link return the existing grant.
func (s *Service) Approve(ctx context.Context, grantID, approvalToken, approverIP string) (*types.PatientAccessGrant, error) {
	g, err := s.repo.FindByID(ctx, grantID)
	if err != nil {
		if isNotFound(err) {
			monitoring.RecordGrantTransition("approve", "not_found")
			return nil, collapsedError()
		}
		return nil, err
	}

	if g.Status == types.GrantApproved {
		monitoring.RecordGrantTransition("approve", "already_approved")
		return g, nil
	}

	if g.Status != types.GrantPending || g.ApprovalToken == nil || *g.ApprovalToken != approvalToken {
		monitoring.RecordGrantTransition("approve", "rejected_token")
		return nil, collapsedError()
	}

	now := s.now()
	expiresAt := now.Add(g.RequestedDuration.ToDuration())
	updated, err := s.repo.UpdateWhereStatus(ctx, g.ID, types.GrantPending, &types.GrantTransition{
		Status:      types.GrantApproved,
		GrantedAt:   &now,
		ExpiresAt:   &expiresAt,
		ApproverIP:  approverIP,
		ClearTokens: true,
	})
	if err != nil {
		return nil, err
	}

	if updated == nil {
		// Lost a race: someone else moved the grant out of pending first.
		// If the winner approved it, repeated approval is still a success.
		current, err := s.repo.FindByID(ctx, g.ID)
		if err == nil && current.Status == types.GrantApproved {
			monitoring.RecordGrantTransition("approve", "already_approved")
			return current, nil
		}
		monitoring.RecordGrantTransition("approve", "conflict")
		return nil, collapsedError()
	}

	monitoring.RecordGrantTransition("approve", "ok")
	s.logger.Audit(updated.PatientID, "access_grant.approve", updated.ID, true, map[string]interface{}{
		"doctor_id":  updated.DoctorID,
		"expires_at": updated.ExpiresAt,
	})

	s.notifyDecision(ctx, updated)

	return updated, nil
}

// Reject transitions a pending grant to rejected on a matching rejection
// token. Both tokens are invalidated; no expiry is ever set.
func (s *Service) Reject(ctx context.Context, grantID, rejectionToken string) (*types.PatientAccessGrant, error) {
	g, err := s.repo.FindByID(ctx, grantID)
	if err != nil {
		if isNotFound(err) {
			monitoring.RecordGrantTransition("reject", "not_found")
			return nil, collapsedError()
		}
		return nil, err
	}

	if g.Status != types.GrantPending || g.RejectionToken == nil || *g.RejectionToken != rejectionToken {
		monitoring.RecordGrantTransition("reject", "rejected_token")
		return nil, collapsedError()
	}

	updated, err := s.repo.UpdateWhereStatus(ctx, g.ID, types.GrantPending, &types.GrantTransition{
		Status:      types.GrantRejected,
		ClearTokens: true,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		monitoring.RecordGrantTransition("reject", "conflict")
		return nil, collapsedError()
	}

	monitoring.RecordGrantTransition("reject", "ok")
	s.logger.Audit(updated.PatientID, "access_grant.reject", updated.ID, true, map[string]interface{}{
		"doctor_id": updated.DoctorID,
	})

	s.notifyDecision(ctx, updated)

	return updated, nil
}

// Revoke terminates an approved grant early. Only the patient who owns
// the grant may revoke it; revocation takes effect immediately for all
// subsequent access checks.
func (s *Service) Revoke(ctx context.Context, grantID, requestedByPatientID string) (*types.PatientAccessGrant, error) {
	g, err := s.repo.FindByID(ctx, grantID)
	if err != nil {
		return nil, err
	}

	if g.PatientID != requestedByPatientID {
		monitoring.RecordGrantTransition("revoke", "forbidden")
		return nil, types.NewForbiddenError(types.ErrCodeForbidden,
			"Only the patient this grant concerns can revoke it")
	}

	now := s.now()
	updated, err := s.repo.UpdateWhereStatus(ctx, g.ID, types.GrantApproved, &types.GrantTransition{
		Status:    types.GrantRevoked,
		RevokedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		monitoring.RecordGrantTransition("revoke", "conflict")
		return nil, types.NewConflictError(types.ErrCodeConflict,
			"Access request already processed", map[string]interface{}{"status": g.Status})
	}

	monitoring.RecordGrantTransition("revoke", "ok")
	s.logger.Audit(requestedByPatientID, "access_grant.revoke", updated.ID, true, map[string]interface{}{
		"doctor_id": updated.DoctorID,
	})

	return updated, nil
}

// Sweep conditionally expires every approved grant whose expiry has
// passed. Idempotent; intended to be driven by an external scheduler.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	swept, err := s.repo.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	monitoring.RecordSweep(swept)
	if swept > 0 {
		s.logger.WithFields(map[string]interface{}{"swept": swept}).Info("Expired timed-out access grants")
	}
	return swept, nil
}

// CheckActive returns the effective access context when the doctor holds
// a live grant for the patient, or nil on a miss. Expiry is evaluated
// lazily here, so an expired-but-unswept grant is already inactive. The
// hit itself is an audit event: it increments the grant's access count.
func (s *Service) CheckActive(ctx context.Context, doctorID, patientID string) (*types.ActiveGrantContext, error) {
	g, err := s.repo.TouchActive(ctx, doctorID, patientID, s.now())
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}

	s.logger.CrossOrgAccess(g.ID, doctorID, patientID, g.AccessCount)

	return &types.ActiveGrantContext{
		GrantID:               g.ID,
		PatientID:             g.PatientID,
		PatientOrganizationID: g.PatientOrganizationID,
		ExpiresAt:             *g.ExpiresAt,
		AccessCount:           g.AccessCount,
	}, nil
}

// ListForDoctor returns the doctor's own requests with presentation fields
func (s *Service) ListForDoctor(ctx context.Context, doctorID string, status types.GrantStatus) ([]*types.GrantView, error) {
	grants, err := s.repo.ListByDoctor(ctx, doctorID, status)
	if err != nil {
		return nil, err
	}
	return s.views(grants), nil
}

// ListForPatient returns grants against the patient with presentation fields
func (s *Service) ListForPatient(ctx context.Context, patientID string, includeExpired bool) ([]*types.GrantView, error) {
	grants, err := s.repo.ListByPatient(ctx, patientID, includeExpired)
	if err != nil {
		return nil, err
	}
	return s.views(grants), nil
}

// Helper methods

func (s *Service) validateRequest(input *types.AccessRequestInput) error {
	if len(strings.TrimSpace(input.Reason)) < s.cfg.Grants.MinReasonLength {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("Reason must be at least %d characters", s.cfg.Grants.MinReasonLength), nil)
	}
	if !input.Duration.Valid() {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("Invalid duration %q", input.Duration), nil)
	}
	if !input.Urgency.Valid() {
		return types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("Invalid urgency level %q", input.Urgency), nil)
	}
	return nil
}

func (s *Service) notifyDecision(ctx context.Context, g *types.PatientAccessGrant) {
	if s.notifier == nil {
		return
	}
	doctor, err := s.users.GetByID(ctx, g.DoctorID)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"grant_id": g.ID,
		}).Warn("Could not load doctor for decision notification")
		return
	}
	s.notifier.AccessDecided(g, doctor)
}

func (s *Service) views(grants []*types.PatientAccessGrant) []*types.GrantView {
	now := s.now()
	views := make([]*types.GrantView, 0, len(grants))
	for _, g := range grants {
		views = append(views, types.NewGrantView(g, now))
	}
	return views
}

func collapsedError() *types.AppError {
	return types.NewNotFoundError(types.ErrCodeGrantNotFound, collapsedMessage)
}

func isNotFound(err error) bool {
	appErr, ok := err.(*types.AppError)
	return ok && appErr.Type == types.ErrorTypeNotFound
}
