package types

import (
	"fmt"
	"time"
)

// GrantStatus represents the lifecycle state of a patient access grant
type GrantStatus string

const (
	GrantPending  GrantStatus = "pending"
	GrantApproved GrantStatus = "approved"
	GrantRejected GrantStatus = "rejected"
	GrantExpired  GrantStatus = "expired"
	GrantRevoked  GrantStatus = "revoked"
)

// IsTerminal reports whether no further transitions are possible from s.
// Approved is the only non-terminal success state and is itself time-bounded.
func (s GrantStatus) IsTerminal() bool {
	return s == GrantRejected || s == GrantExpired || s == GrantRevoked
}

// AccessDuration is the closed set of requestable grant durations
type AccessDuration string

const (
	Duration24Hours AccessDuration = "24_hours"
	Duration3Days   AccessDuration = "3_days"
	Duration1Week   AccessDuration = "1_week"
	DurationCustom  AccessDuration = "custom"
)

// ToDuration resolves the requested duration to a concrete span.
// Custom falls back to 24 hours.
func (d AccessDuration) ToDuration() time.Duration {
	switch d {
	case Duration3Days:
		return 72 * time.Hour
	case Duration1Week:
		return 7 * 24 * time.Hour
	case Duration24Hours, DurationCustom:
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Valid reports whether d is one of the closed enum values
func (d AccessDuration) Valid() bool {
	switch d {
	case Duration24Hours, Duration3Days, Duration1Week, DurationCustom:
		return true
	}
	return false
}

// Label returns a human-readable duration label
func (d AccessDuration) Label() string {
	switch d {
	case Duration24Hours:
		return "24 hours"
	case Duration3Days:
		return "3 days"
	case Duration1Week:
		return "1 week"
	case DurationCustom:
		return "custom"
	}
	return string(d)
}

// UrgencyLevel classifies how urgent an access request is. Informational
// only; never read by business logic.
type UrgencyLevel string

const (
	UrgencyNormal    UrgencyLevel = "normal"
	UrgencyUrgent    UrgencyLevel = "urgent"
	UrgencyEmergency UrgencyLevel = "emergency"
)

// Valid reports whether u is a known urgency level
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

// PatientAccessGrant is a time-boxed, consent-gated permission for a
// clinician in one organization to view a specific patient's records owned
// by another organization. The row is mutated only through the grant
// lifecycle service.
type PatientAccessGrant struct {
	ID                    string         `json:"id" db:"id"`
	PatientID             string         `json:"patient_id" db:"patient_id"`
	PatientOrganizationID string         `json:"patient_organization_id" db:"patient_organization_id"`
	DoctorID              string         `json:"requesting_doctor_id" db:"requesting_doctor_id"`
	DoctorOrganizationID  string         `json:"doctor_organization_id" db:"doctor_organization_id"`
	Status                GrantStatus    `json:"status" db:"status"`
	Reason                string         `json:"reason" db:"reason"`
	RequestedDuration     AccessDuration `json:"requested_duration" db:"requested_duration"`
	Urgency               UrgencyLevel   `json:"urgency_level" db:"urgency_level"`

	// Single-use tokens, present only while the grant is pending. Both are
	// nulled atomically the instant the grant leaves the pending state.
	ApprovalToken  *string `json:"-" db:"approval_token"`
	RejectionToken *string `json:"-" db:"rejection_token"`

	GrantedAt *time.Time `json:"granted_at,omitempty" db:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`

	// Audit fields, informational only
	AccessCount    int        `json:"access_count" db:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty" db:"last_accessed_at"`
	RequesterIP    string     `json:"requester_ip,omitempty" db:"requester_ip"`
	ApproverIP     string     `json:"approver_ip,omitempty" db:"approver_ip"`
	EmailSentAt    *time.Time `json:"email_sent_at,omitempty" db:"email_sent_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LiveAt reports whether the grant authorizes access at instant t.
// This is the single time-comparison predicate shared by the lazy check
// and the eager sweep so the two paths cannot drift apart.
func (g *PatientAccessGrant) LiveAt(t time.Time) bool {
	return g.Status == GrantApproved && g.ExpiresAt != nil && g.ExpiresAt.After(t)
}

// AccessRequestInput is the doctor-facing request payload
type AccessRequestInput struct {
	PatientID string         `json:"patient_id" binding:"required"`
	Reason    string         `json:"reason" binding:"required,min=10"`
	Duration  AccessDuration `json:"duration" binding:"required"`
	Urgency   UrgencyLevel   `json:"urgency" binding:"required"`
}

// GrantView is the client-facing representation of a grant with
// computed presentation fields
type GrantView struct {
	ID            string         `json:"id"`
	PatientID     string         `json:"patient_id"`
	DoctorID      string         `json:"requesting_doctor_id"`
	Status        GrantStatus    `json:"status"`
	Reason        string         `json:"reason"`
	Duration      AccessDuration `json:"requested_duration"`
	DurationLabel string         `json:"duration_label"`
	Urgency       UrgencyLevel   `json:"urgency_level"`
	GrantedAt     *time.Time     `json:"granted_at,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	RevokedAt     *time.Time     `json:"revoked_at,omitempty"`
	AccessCount   int            `json:"access_count"`
	IsActive      bool           `json:"is_active"`
	CanRevoke     bool           `json:"can_revoke"`
	RemainingTime string         `json:"remaining_time,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewGrantView builds the client view of a grant as of instant now
func NewGrantView(g *PatientAccessGrant, now time.Time) *GrantView {
	live := g.LiveAt(now)
	view := &GrantView{
		ID:            g.ID,
		PatientID:     g.PatientID,
		DoctorID:      g.DoctorID,
		Status:        g.Status,
		Reason:        g.Reason,
		Duration:      g.RequestedDuration,
		DurationLabel: g.RequestedDuration.Label(),
		Urgency:       g.Urgency,
		GrantedAt:     g.GrantedAt,
		ExpiresAt:     g.ExpiresAt,
		RevokedAt:     g.RevokedAt,
		AccessCount:   g.AccessCount,
		IsActive:      live,
		CanRevoke:     live,
		CreatedAt:     g.CreatedAt,
	}
	if live {
		view.RemainingTime = FormatRemaining(g.ExpiresAt.Sub(now))
	}
	return view
}

// FormatRemaining formats a remaining time span into a human-readable label
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d days", int(d.Hours()/24))
}

// GrantTransition is the patch applied by a conditional status update.
// ClearTokens nulls both single-use tokens in the same write as the status
// change, so neither link can be used after resolution.
type GrantTransition struct {
	Status      GrantStatus
	GrantedAt   *time.Time
	ExpiresAt   *time.Time
	RevokedAt   *time.Time
	ApproverIP  string
	ClearTokens bool
}

// ActiveGrantContext is the effective access context attached to a request
// after a successful cross-organization check
type ActiveGrantContext struct {
	GrantID               string    `json:"grant_id"`
	PatientID             string    `json:"patient_id"`
	PatientOrganizationID string    `json:"patient_organization_id"`
	ExpiresAt             time.Time `json:"expires_at"`
	AccessCount           int       `json:"access_count"`
}
