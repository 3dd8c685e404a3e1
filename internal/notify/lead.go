package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/studio-site/internal/leads"
	"github.com/wolfman30/studio-site/pkg/logging"
)

var tracer = otel.Tracer("studio.internal.notify")

// ErrRecipientMissing is returned when no lead inbox is configured.
var ErrRecipientMissing = errors.New("notify: lead recipient not configured")

// LeadNotifier emails the studio inbox about each saved lead.
type LeadNotifier struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

// NewLeadNotifier creates a notifier that sends to the given inbox.
func NewLeadNotifier(sender EmailSender, to string, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{
		sender: sender,
		to:     strings.TrimSpace(to),
		logger: logger.WithComponent("lead_notifier"),
	}
}

// CheckConfig reports a missing sender or recipient.
func (n *LeadNotifier) CheckConfig() error {
	if n.sender == nil {
		return ErrSenderNotConfigured
	}
	if n.to == "" {
		return ErrRecipientMissing
	}
	return nil
}

// NotifyLead sends the plain-text lead summary. Failures are not retried.
func (n *LeadNotifier) NotifyLead(ctx context.Context, sub *leads.Submission) error {
	ctx, span := tracer.Start(ctx, "notify.lead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", sub.ID))

	if err := n.CheckConfig(); err != nil {
		return err
	}

	msg := LeadEmail(sub)
	msg.To = n.to
	if err := n.sender.Send(ctx, msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: lead email: %w", err)
	}
	n.logger.Debug("lead notification sent", "lead_id", sub.ID)
	return nil
}

// LeadEmail renders the notification for a submission, without a recipient.
func LeadEmail(sub *leads.Submission) EmailMessage {
	subject := "New lead form submission by " + sub.Name
	lines := []string{
		subject,
		"Name: " + sub.Name,
		"Purpose: " + sub.Purpose.String(),
		"Email: " + sub.Email,
		"Phone number: " + sub.PhoneNumber,
		"Message: " + sub.Message,
	}
	if sub.PageURL != "" {
		lines = append(lines, "Page URL: "+sub.PageURL)
	}
	return EmailMessage{
		ReplyTo: sub.Email,
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}
