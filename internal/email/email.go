// Package email delivers transactional mail for the CRM. Delivery is behind
// the Sender interface so modules stay testable and email can be disabled per
// environment with the NoopSender.
package email

import "context"

type Sender interface {
	SendReminderEmail(ctx context.Context, toEmail, leadName, message string) error
	SendAssignmentEmail(ctx context.Context, toEmail, leadName, stageDisplay string) error
	SendWelcomeEmail(ctx context.Context, toEmail, username string) error
}

// NoopSender drops all mail. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendReminderEmail(ctx context.Context, toEmail, leadName, message string) error {
	return nil
}

func (NoopSender) SendAssignmentEmail(ctx context.Context, toEmail, leadName, stageDisplay string) error {
	return nil
}

func (NoopSender) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	return nil
}

var _ Sender = NoopSender{}
