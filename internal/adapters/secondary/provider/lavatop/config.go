package lavatop

type Config struct {
	APIKey        string `envconfig:"API_KEY"`
	WebhookLogin  string `envconfig:"WEBHOOK_LOGIN"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
}
