package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Amount is a decimal money value that envconfig can parse from a string.
type Amount struct {
	decimal.Decimal
}

// Decode implements envconfig.Decoder.
func (a *Amount) Decode(value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// Config holds the overall application configuration.
type Config struct {
	DatabaseURL   string `envconfig:"DATABASE_URL"       required:"true"`
	LogLevel      string `envconfig:"LOG_LEVEL"          default:"info"`
	Timezone      string `envconfig:"PLATFORM_TIMEZONE"  default:"Africa/Accra"`
	EncryptionKey string `envconfig:"SMS_ENCRYPTION_KEY"`

	Scheduler SchedulerConfig
	Billing   BillingConfig
	Webhook   WebhookConfig
	Provider  ProviderConfig
}

// SchedulerConfig drives the dispatch worker loop.
type SchedulerConfig struct {
	Interval      time.Duration `envconfig:"SCHEDULER_INTERVAL"        default:"60s"`
	BatchLimit    int           `envconfig:"SCHEDULER_BATCH_LIMIT"     default:"200"`
	TickTimeout   time.Duration `envconfig:"SCHEDULER_TICK_TIMEOUT"    default:"1m"`
	DryRun        bool          `envconfig:"SCHEDULER_DRY_RUN"         default:"false"`
	OrgFilter     string        `envconfig:"SCHEDULER_ORG_FILTER"`
	MaxRetries    int32         `envconfig:"SCHEDULER_MAX_RETRIES"     default:"3"`
	RetryMinDelay time.Duration `envconfig:"SCHEDULER_RETRY_MIN_DELAY" default:"0s"`
}

// BillingConfig holds platform-side cost settings.
type BillingConfig struct {
	GatewayCostPerSMS Amount        `envconfig:"GATEWAY_COST_PER_SMS"  default:"0.03"`
	LowCreditHeadroom int64         `envconfig:"LOW_CREDIT_HEADROOM"   default:"10"`
	LowCreditInterval time.Duration `envconfig:"LOW_CREDIT_INTERVAL"   default:"5m"`
}

// WebhookConfig holds the delivery receipt server settings.
type WebhookConfig struct {
	Addr            string        `envconfig:"WEBHOOK_ADDR"              default:"0.0.0.0:8080"`
	ReadTimeout     time.Duration `envconfig:"WEBHOOK_READ_TIMEOUT"      default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WEBHOOK_WRITE_TIMEOUT"     default:"10s"`
	IdleTimeout     time.Duration `envconfig:"WEBHOOK_IDLE_TIMEOUT"      default:"60s"`
	HubtelSecret    string        `envconfig:"HUBTEL_WEBHOOK_SECRET"`
	ClickSendSecret string        `envconfig:"CLICKSEND_WEBHOOK_SECRET"`
}

// ProviderSecrets maps provider route names to their webhook secrets.
// Providers without a secret skip signature verification.
func (c WebhookConfig) ProviderSecrets() map[string]string {
	return map[string]string{
		"hubtel":    c.HubtelSecret,
		"clicksend": c.ClickSendSecret,
	}
}

// ProviderConfig holds outbound SMS provider settings shared by all
// senders.
type ProviderConfig struct {
	HubtelAPIURL     string        `envconfig:"HUBTEL_API_URL"      default:"https://smsc.hubtel.com/v1/messages/send"`
	ClickSendBaseURL string        `envconfig:"CLICKSEND_BASE_URL"  default:"https://rest.clicksend.com/v3"`
	Timeout          time.Duration `envconfig:"PROVIDER_TIMEOUT"    default:"15s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, skipping: %v", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
