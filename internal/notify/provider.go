package notify

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/studio-site/pkg/logging"
)

// DefaultFromName is the display name used when none is configured.
const DefaultFromName = "Studio Website"

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderAuto     = "auto"
	ProviderResend   = "resend"
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderStub     = "stub"
)

// SenderConfig selects and configures an email provider.
type SenderConfig struct {
	Provider       string
	FromEmail      string
	FromName       string
	ResendAPIKey   string
	SendGridAPIKey string
	// SES is used for the ses provider, and by auto when no API key is set.
	SES *sesv2.Client
}

// NewSender picks an email provider. Auto prefers Resend, then SendGrid,
// then SES. It returns a nil sender and "none" when nothing usable is
// configured, including a missing from address.
func NewSender(cfg SenderConfig, logger *logging.Logger) (EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAuto
	}
	if provider == ProviderStub {
		return NewStubEmailSender(logger), ProviderStub
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, "none"
	}

	if provider == ProviderAuto || provider == ProviderResend {
		if s := NewResendSender(ResendConfig{APIKey: cfg.ResendAPIKey, FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger); s != nil {
			return s, ProviderResend
		}
	}
	if provider == ProviderAuto || provider == ProviderSendGrid {
		if s := NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger); s != nil {
			return s, ProviderSendGrid
		}
	}
	if provider == ProviderAuto || provider == ProviderSES {
		if s := NewSESSender(cfg.SES, SESConfig{FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger); s != nil {
			return s, ProviderSES
		}
	}
	return nil, "none"
}
