package models

// NotificationType identifies the loan event a notification reports.
type NotificationType string

const (
	NotificationLoanSubmitted     NotificationType = "loan_submitted"
	NotificationLoanStatusChanged NotificationType = "loan_status_changed"
)

// Notification is the outcome of one delivery attempt on one channel.
type Notification struct {
	ID        string           `json:"id"`
	LoanID    int64            `json:"loanId"`
	Recipient string           `json:"recipient"`
	Type      NotificationType `json:"type"`
	Channel   string           `json:"channel"` // "email", "sms"
	Status    string           `json:"status"`  // "sent", "failed"
	MessageID string           `json:"messageId,omitempty"`
	Error     string           `json:"error,omitempty"`
}
