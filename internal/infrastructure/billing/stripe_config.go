package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// ApplicationTag marks sessions created by this application so that
	// webhook deliveries for other applications on the same Stripe account
	// can be filtered out
	ApplicationTag string `json:"application_tag" mapstructure:"application_tag"`

	// DefaultCurrency is the currency for token purchases (e.g. "usd")
	DefaultCurrency string `json:"default_currency" mapstructure:"default_currency"`

	// SuccessURL is the URL to redirect after successful checkout
	SuccessURL string `json:"success_url" mapstructure:"success_url"`

	// CancelURL is the URL to redirect after cancelled checkout
	CancelURL string `json:"cancel_url" mapstructure:"cancel_url"`
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	if c.DefaultCurrency == "" {
		return fmt.Errorf("stripe: default currency is required")
	}
	if c.ApplicationTag == "" {
		return fmt.Errorf("stripe: application tag is required")
	}
	return nil
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
