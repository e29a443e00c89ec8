package email

import (
	"context"
	"fmt"
	"time"

	"pipeline_crm_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// NewSender selects the sender implementation from configuration. With email
// disabled all mail is silently dropped.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	if cfg.GetSMTPHost() == "" {
		return nil, fmt.Errorf("email enabled but SMTP_HOST is not set")
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendReminderEmail(ctx context.Context, toEmail, leadName, message string) error {
	content, err := render(emailData{
		Heading: "Follow-up reminder",
		Body:    message,
		Detail:  fmt.Sprintf("Lead: %s", leadName),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectReminder, content)
}

func (s *SMTPSender) SendAssignmentEmail(ctx context.Context, toEmail, leadName, stageDisplay string) error {
	content, err := render(emailData{
		Heading: "New lead needs assignment",
		Body:    fmt.Sprintf("Lead %s moved to %s and is waiting for a team member.", leadName, stageDisplay),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAssignment, content)
}

func (s *SMTPSender) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	content, err := render(emailData{
		Heading: "Welcome",
		Body:    fmt.Sprintf("Hi %s, your CRM account is ready.", username),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectWelcome, content)
}

var _ Sender = (*SMTPSender)(nil)
