package notify

import (
	"fmt"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/config"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// GrantNotifier composes grant lifecycle emails and hands them to the
// dispatcher. Approve and reject links carry their single-use tokens as
// URL path segments; the links stop working the moment either is used.
type GrantNotifier struct {
	cfg        *config.TenantConfig
	dispatcher interfaces.NotificationDispatcher
	logger     *logger.Logger
}

// NewGrantNotifier creates a grant lifecycle notifier
func NewGrantNotifier(cfg *config.TenantConfig, dispatcher interfaces.NotificationDispatcher, log *logger.Logger) *GrantNotifier {
	return &GrantNotifier{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// AccessRequested emails the patient a consent request with one-click
// approve and reject links
func (n *GrantNotifier) AccessRequested(grant *types.PatientAccessGrant, patient *types.User) {
	if grant.ApprovalToken == nil || grant.RejectionToken == nil {
		n.logger.WithFields(map[string]interface{}{"grant_id": grant.ID}).
			Warn("Skipping consent email for grant without decision tokens")
		return
	}

	approveURL := n.decisionURL(grant.ID, "approve", *grant.ApprovalToken)
	rejectURL := n.decisionURL(grant.ID, "reject", *grant.RejectionToken)

	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"A doctor from another healthcare organization has requested access to your medical records.\n\n"+
			"Reason: %s\n"+
			"Requested duration: %s\n"+
			"Urgency: %s\n\n"+
			"To approve this request, open:\n%s\n\n"+
			"To reject this request, open:\n%s\n\n"+
			"These links can be used only once. If you did not expect this request, reject it or ignore this email.\n",
		patient.FullName(), grant.Reason, grant.RequestedDuration.Label(), grant.Urgency, approveURL, rejectURL)

	n.enqueue(&types.EmailMessage{
		To:      patient.Email,
		Subject: "Medical records access request",
		Body:    body,
		GrantID: grant.ID,
	})
}

// AccessDecided emails the requesting doctor the outcome of the patient's
// decision
func (n *GrantNotifier) AccessDecided(grant *types.PatientAccessGrant, doctor *types.User) {
	var subject, outcome string
	switch grant.Status {
	case types.GrantApproved:
		subject = "Access request approved"
		outcome = "approved your request"
		if grant.ExpiresAt != nil {
			outcome = fmt.Sprintf("approved your request. Access expires at %s", grant.ExpiresAt.Format("2006-01-02 15:04 MST"))
		}
	case types.GrantRejected:
		subject = "Access request rejected"
		outcome = "rejected your request"
	default:
		return
	}

	body := fmt.Sprintf(
		"Hello Dr. %s,\n\nThe patient has %s.\n\nRequest reference: %s\n",
		doctor.LastName, outcome, grant.ID)

	n.enqueue(&types.EmailMessage{
		To:      doctor.Email,
		Subject: subject,
		Body:    body,
	})
}

func (n *GrantNotifier) decisionURL(grantID, action, token string) string {
	return fmt.Sprintf("https://%s/access-requests/%s/%s/%s", n.cfg.BaseDomain, grantID, action, token)
}

func (n *GrantNotifier) enqueue(msg *types.EmailMessage) {
	if !n.dispatcher.Enqueue(msg) {
		n.logger.WithFields(map[string]interface{}{"to": msg.To}).
			Warn("Notification dispatcher rejected message")
	}
}
