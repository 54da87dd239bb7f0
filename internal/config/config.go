package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address            string `yaml:"address"`
		PublicURL          string `yaml:"public_url"`
		ReadTimeoutSeconds int    `yaml:"read_timeout_seconds"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"logging"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Auth struct {
		Enabled        bool   `yaml:"enabled"`
		TokenTTLMinute int    `yaml:"token_ttl_minutes"`
		AdminEmail     string `yaml:"admin_email"`
	} `yaml:"auth"`

	Payments struct {
		Provider   string `yaml:"provider"` // stripe | local
		Currency   string `yaml:"currency"`
		SuccessURL string `yaml:"success_url"`
		CancelURL  string `yaml:"cancel_url"`
	} `yaml:"payments"`

	Scheduler struct {
		SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	} `yaml:"scheduler"`

	Verification struct {
		OTPTTLMinutes int `yaml:"otp_ttl_minutes"`
		MaxAttempts   int `yaml:"max_attempts"`
		SendsPerHour  int `yaml:"sends_per_hour"`
	} `yaml:"verification"`

	Notifications struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		QueueSize      int `yaml:"queue_size"`
		Workers        int `yaml:"workers"`

		SMTP struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			From     string `yaml:"from"`
		} `yaml:"smtp"`
		Telegram struct {
			ChatID int64 `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"notifications"`

	Meeting struct {
		LinkTemplate          string `yaml:"link_template"`
		GoogleCredentialsFile string `yaml:"google_credentials_file"`
		GoogleCalendarID      string `yaml:"google_calendar_id"`
	} `yaml:"meeting"`

	Events struct {
		AMQPURL  string `yaml:"amqp_url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"events"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Secrets Secrets `yaml:"-"`
}

// Secrets are only read from the environment.
type Secrets struct {
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	JWTSecret           string `envconfig:"JWT_SECRET"`
	AdminPassword       string `envconfig:"ADMIN_PASSWORD"`
	SMTPPassword        string `envconfig:"SMTP_PASSWORD"`
	TelegramBotToken    string `envconfig:"TELEGRAM_BOT_TOKEN"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err = envconfig.Process("", &cfg.Secrets); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://localhost:8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/interviewhub.db"
	}
	if c.Payments.Provider == "" {
		c.Payments.Provider = "local"
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "usd"
	}
	if c.Payments.SuccessURL == "" {
		c.Payments.SuccessURL = c.Server.PublicURL + "/api/payments/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if c.Payments.CancelURL == "" {
		c.Payments.CancelURL = c.Server.PublicURL + "/api/payments/cancel"
	}
	if c.Meeting.LinkTemplate == "" {
		c.Meeting.LinkTemplate = "https://meet.jit.si/interviewhub-%s"
	}
	if c.Meeting.GoogleCalendarID == "" {
		c.Meeting.GoogleCalendarID = "primary"
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "interviewhub.events"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

func (c *Config) SweepInterval() time.Duration {
	if c.Scheduler.SweepIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Scheduler.SweepIntervalSeconds) * time.Second
}

func (c *Config) OTPTTL() time.Duration {
	if c.Verification.OTPTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Verification.OTPTTLMinutes) * time.Minute
}

func (c *Config) OTPMaxAttempts() int {
	if c.Verification.MaxAttempts <= 0 {
		return 5
	}
	return c.Verification.MaxAttempts
}

func (c *Config) OTPSendsPerHour() int {
	if c.Verification.SendsPerHour <= 0 {
		return 5
	}
	return c.Verification.SendsPerHour
}

func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLMinute <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTLMinute) * time.Minute
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// DeliveryTimeout bounds one email or chat delivery.
func (c *Config) DeliveryTimeout() time.Duration {
	if c.Notifications.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Notifications.TimeoutSeconds) * time.Second
}

func (c *Config) DeliveryQueue() (size, workers int) {
	size, workers = c.Notifications.QueueSize, c.Notifications.Workers
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 2
	}
	return size, workers
}
