package config

type PaymentConfig struct {
	Stripe   *StripeConfig `yaml:"stripe"`
	Currency string        `yaml:"currency"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// Enabled reports whether checkout webhooks can be verified.
func (s *StripeConfig) Enabled() bool {
	return s != nil && s.SecretKey != "" && s.WebhookSecret != ""
}

func loadPaymentConfig() *PaymentConfig {
	return &PaymentConfig{
		Stripe: &StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Currency: getEnv("PAYMENT_CURRENCY", "USD"),
	}
}
