package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the notifier. It is loaded
// once at startup and treated as read-only afterwards.
type Config struct {
	App          AppConfig
	Kafka        KafkaConfig
	Topics       TopicConfig
	Worker       WorkerConfig
	Templates    TemplateConfig
	Notification NotificationConfig
	Directories  DirectoryConfig
	Store        StoreConfig
	Providers    ProviderConfig
	Timeouts     TimeoutConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

// KafkaConfig defines broker information and the consumer group.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
}

// TopicConfig names the callback input topic and the worker output topics.
type TopicConfig struct {
	Callback string
	Outcome  string
	DLQ      string
}

// WorkerConfig controls callback worker behaviour.
type WorkerConfig struct {
	Concurrency         int
	MsgMaxBytes         int
	CommitOnSuccessOnly bool
}

// TemplateConfig holds the notification template codes per lifecycle family.
type TemplateConfig struct {
	Payment           string `yaml:"pagamento"`
	Change            string `yaml:"alteracao"`
	Charge            string `yaml:"cobranca"`
	SchedulingFailure string `yaml:"falha_agendamento"`
	AdhesionIncentive string `yaml:"incentivo_adesao"`
}

// NotificationConfig carries values attached to every dispatched notification.
type NotificationConfig struct {
	CampaignID string
}

// DirectoryConfig points at the customer directories used for enrichment.
type DirectoryConfig struct {
	MobileBillingURL    string
	MobileSubscriberURL string
	ResidentialURL      string
	TimeoutMs           int
	ConcurrentLookups   bool
}

// StoreConfig configures the payment-info store.
type StoreConfig struct {
	PostgresDSN  string
	MaxOpenConns int
}

// SMTPConfig stores SMTP credentials for email delivery.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMSGatewayConfig stores credentials for the HTTP SMS gateway.
type SMSGatewayConfig struct {
	BaseURL string
	APIKey  string
	Sender  string
}

// ProviderConfig selects and configures the dispatch backends.
type ProviderConfig struct {
	SMSProvider   string
	EmailProvider string
	SMTP          SMTPConfig
	SMSGateway    SMSGatewayConfig
}

// TimeoutConfig contains timeout thresholds for outbound providers.
type TimeoutConfig struct {
	ProviderTimeoutSeconds int
}

// Load reads environment variables (and an optional .env file), applies
// defaults, validates values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getInt("APP_PORT", 8080, false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.ConsumerGroup = ldr.getString("KAFKA_CONSUMER_GROUP", "pixauto-notifier", false)

	cfg.Topics.Callback = ldr.getString("KAFKA_CALLBACK_TOPIC", "payments.callbacks.pix-automatico", false)
	cfg.Topics.Outcome = ldr.getString("KAFKA_OUTCOME_TOPIC", "payments.notifications.outcome", false)
	cfg.Topics.DLQ = ldr.getString("KAFKA_DLQ_TOPIC", "payments.notifications.dlq", false)

	cfg.Worker.Concurrency = ldr.getInt("WORKER_CONCURRENCY", 10, false)
	cfg.Worker.MsgMaxBytes = ldr.getInt("MSG_MAX_BYTES", 64*1024, false)
	cfg.Worker.CommitOnSuccessOnly = ldr.getBool("COMMIT_ON_SUCCESS_ONLY", true, false)

	cfg.Templates = ldr.templates()

	cfg.Notification.CampaignID = ldr.getString("CAMPAIGN_ID", "", true)

	cfg.Directories.MobileBillingURL = ldr.getString("MOBILE_BILLING_URL", "", false)
	cfg.Directories.MobileSubscriberURL = ldr.getString("MOBILE_SUBSCRIBER_URL", "", false)
	cfg.Directories.ResidentialURL = ldr.getString("RESIDENTIAL_SUBSCRIBER_URL", "", false)
	cfg.Directories.TimeoutMs = ldr.getInt("DIRECTORY_TIMEOUT_MS", 3000, false)
	cfg.Directories.ConcurrentLookups = ldr.getBool("ENRICH_CONCURRENT", false, false)

	cfg.Store.PostgresDSN = ldr.getString("PAYMENT_STORE_DSN", "", false)
	cfg.Store.MaxOpenConns = ldr.getInt("PAYMENT_STORE_MAX_OPEN_CONNS", 10, false)

	cfg.Providers.SMSProvider = ldr.getString("SMS_PROVIDER", "mock", false)
	cfg.Providers.EmailProvider = ldr.getString("EMAIL_PROVIDER", "mock", false)

	smtpRequired := strings.EqualFold(cfg.Providers.EmailProvider, "smtp")
	cfg.Providers.SMTP.Host = ldr.getString("SMTP_HOST", "", smtpRequired)
	cfg.Providers.SMTP.Port = ldr.getInt("SMTP_PORT", 587, false)
	cfg.Providers.SMTP.User = ldr.getString("SMTP_USER", "", false)
	cfg.Providers.SMTP.Pass = ldr.getString("SMTP_PASS", "", false)
	cfg.Providers.SMTP.From = ldr.getString("SMTP_FROM", "", smtpRequired)

	gatewayRequired := strings.EqualFold(cfg.Providers.SMSProvider, "http")
	cfg.Providers.SMSGateway.BaseURL = ldr.getString("SMS_GATEWAY_URL", "", gatewayRequired)
	cfg.Providers.SMSGateway.APIKey = ldr.getString("SMS_GATEWAY_API_KEY", "", gatewayRequired)
	cfg.Providers.SMSGateway.Sender = ldr.getString("SMS_GATEWAY_SENDER", "", false)

	cfg.Timeouts.ProviderTimeoutSeconds = ldr.getInt("PROVIDER_TIMEOUT_SECONDS", 30, false)

	if cfg.Worker.Concurrency < 1 {
		ldr.addError("WORKER_CONCURRENCY must be >= 1")
	}
	if cfg.Directories.TimeoutMs < 0 {
		ldr.addError("DIRECTORY_TIMEOUT_MS cannot be negative")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateWorker checks the settings only the Kafka worker needs.
func (c *Config) ValidateWorker() error {
	ldr := &envLoader{}
	if len(c.Kafka.Brokers) == 0 {
		ldr.addError("KAFKA_BROKERS is required")
	}
	if c.Topics.Callback == "" {
		ldr.addError("KAFKA_CALLBACK_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		ldr.addError("KAFKA_CONSUMER_GROUP is required")
	}
	if c.Store.PostgresDSN == "" {
		ldr.addError("PAYMENT_STORE_DSN is required")
	}
	return ldr.validate()
}

// LoadTemplates resolves only the template codes, for commands that do not
// need the rest of the configuration.
func LoadTemplates() (TemplateConfig, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}
	tpl := ldr.templates()
	if err := ldr.validate(); err != nil {
		return TemplateConfig{}, err
	}
	return tpl, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) templates() TemplateConfig {
	base := DefaultTemplates()
	if path := l.getString("TEMPLATES_FILE", "", false); path != "" {
		loaded, err := loadTemplatesFile(path, base)
		if err != nil {
			l.addError(err.Error())
		} else {
			base = loaded
		}
	}
	return TemplateConfig{
		Payment:           l.getString("TEMPLATE_PAGAMENTO", base.Payment, false),
		Change:            l.getString("TEMPLATE_ALTERACAO", base.Change, false),
		Charge:            l.getString("TEMPLATE_COBRANCA", base.Charge, false),
		SchedulingFailure: l.getString("TEMPLATE_FALHA_AGENDAMENTO", base.SchedulingFailure, false),
		AdhesionIncentive: l.getString("TEMPLATE_INCENTIVO_ADESAO", base.AdhesionIncentive, false),
	}
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
		return parsed
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
