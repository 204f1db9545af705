package types

// EmailMessage is a single outbound notification. Delivery is best-effort
// and never on the consistency-critical path.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// GrantID ties the message back to the grant that produced it, for the
	// email_sent_at bookkeeping and log correlation
	GrantID string `json:"grant_id,omitempty"`
}
