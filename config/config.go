package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const VERSION = "1.4"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Email       EmailConfig
	Security    SecurityConfig
	Brand       BrandConfig
	Tracing     TracingConfig
	Unsubscribe UnsubscribeConfig
	Inquiry     InquiryConfig
	RateLimit   RateLimitConfig
	Environment string
	SiteURL     string
	LogLevel    string
	Version     string
}

type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
	SSL             SSLConfig
	// TrustedProxies are the CIDRs or addresses whose X-Forwarded-For is believed.
	TrustedProxies []string
}

type SSLConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig backs the campaign draft store. An empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DraftTTL time.Duration
}

// StorageConfig points at an S3-compatible bucket. An empty Bucket selects in-memory storage.
type StorageConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	PublicURL      string
	ForcePathStyle bool
	MaxUploadBytes int64
}

type EmailConfig struct {
	Provider        string // "smtp", "ses", "postmark", "resend", "log"
	FromEmail       string
	FromName        string
	Timeout         time.Duration
	SendConcurrency int

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPTLSPolicy string

	SESRegion    string
	SESAccessKey string
	SESSecretKey string

	PostmarkServerToken  string
	PostmarkAccountToken string

	ResendAPIKey string
}

type SecurityConfig struct {
	// signs admin session tokens and unsubscribe links
	SecretKey         string
	AdminEmail        string
	AdminPasswordHash string
	SessionTTL        time.Duration
}

type BrandConfig struct {
	Name          string
	Tagline       string
	CopyrightYear int
	AccentColor   string
}

type TracingConfig struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64

	TraceExporter string // "jaeger", "zipkin", "stackdriver", "datadog", "xray", "none"

	JaegerEndpoint       string
	ZipkinEndpoint       string
	StackdriverProjectID string
	DatadogAgentAddress  string
	DatadogAPIKey        string
	XRayRegion           string
	AgentEndpoint        string

	MetricsExporter string // "prometheus", "stackdriver", "datadog", "none" or comma-separated list
	PrometheusPort  int
}

type UnsubscribeConfig struct {
	RequireSignature bool
}

// InquiryConfig configures the signed notification sent to sales on new inquiries.
type InquiryConfig struct {
	WebhookURL    string
	WebhookSecret string
}

// RateLimitConfig holds per-minute limits per client IP.
type RateLimitConfig struct {
	Subscribe int
	Inquiry   int
	Login     int
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}
		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	secretKey := v.GetString("SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			TrustedProxies:  splitList(v.GetString("TRUSTED_PROXIES")),
			SSL: SSLConfig{
				Enabled:  v.GetBool("SSL_ENABLED"),
				CertFile: v.GetString("SSL_CERT_FILE"),
				KeyFile:  v.GetString("SSL_KEY_FILE"),
			},
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			DraftTTL: v.GetDuration("DRAFT_TTL"),
		},
		Storage: StorageConfig{
			Bucket:         v.GetString("STORAGE_BUCKET"),
			Region:         v.GetString("STORAGE_REGION"),
			Endpoint:       v.GetString("STORAGE_ENDPOINT"),
			AccessKey:      v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:      v.GetString("STORAGE_SECRET_KEY"),
			PublicURL:      v.GetString("STORAGE_PUBLIC_URL"),
			ForcePathStyle: v.GetBool("STORAGE_FORCE_PATH_STYLE"),
			MaxUploadBytes: v.GetInt64("STORAGE_MAX_UPLOAD_BYTES"),
		},
		Email: EmailConfig{
			Provider:             v.GetString("EMAIL_PROVIDER"),
			FromEmail:            v.GetString("EMAIL_FROM"),
			FromName:             v.GetString("EMAIL_FROM_NAME"),
			Timeout:              v.GetDuration("EMAIL_TIMEOUT"),
			SendConcurrency:      v.GetInt("CAMPAIGN_SEND_CONCURRENCY"),
			SMTPHost:             v.GetString("SMTP_HOST"),
			SMTPPort:             v.GetInt("SMTP_PORT"),
			SMTPUsername:         v.GetString("SMTP_USERNAME"),
			SMTPPassword:         v.GetString("SMTP_PASSWORD"),
			SMTPTLSPolicy:        v.GetString("SMTP_TLS_POLICY"),
			SESRegion:            v.GetString("SES_REGION"),
			SESAccessKey:         v.GetString("SES_ACCESS_KEY"),
			SESSecretKey:         v.GetString("SES_SECRET_KEY"),
			PostmarkServerToken:  v.GetString("POSTMARK_SERVER_TOKEN"),
			PostmarkAccountToken: v.GetString("POSTMARK_ACCOUNT_TOKEN"),
			ResendAPIKey:         v.GetString("RESEND_API_KEY"),
		},
		Security: SecurityConfig{
			SecretKey:         secretKey,
			AdminEmail:        strings.ToLower(v.GetString("ADMIN_EMAIL")),
			AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
			SessionTTL:        v.GetDuration("SESSION_TTL"),
		},
		Brand: BrandConfig{
			Name:          v.GetString("BRAND_NAME"),
			Tagline:       v.GetString("BRAND_TAGLINE"),
			CopyrightYear: v.GetInt("BRAND_COPYRIGHT_YEAR"),
			AccentColor:   v.GetString("BRAND_ACCENT_COLOR"),
		},
		Tracing: TracingConfig{
			Enabled:              v.GetBool("TRACING_ENABLED"),
			ServiceName:          v.GetString("TRACING_SERVICE_NAME"),
			SamplingProbability:  v.GetFloat64("TRACING_SAMPLING_PROBABILITY"),
			TraceExporter:        v.GetString("TRACING_TRACE_EXPORTER"),
			JaegerEndpoint:       v.GetString("TRACING_JAEGER_ENDPOINT"),
			ZipkinEndpoint:       v.GetString("TRACING_ZIPKIN_ENDPOINT"),
			StackdriverProjectID: v.GetString("TRACING_STACKDRIVER_PROJECT_ID"),
			DatadogAgentAddress:  v.GetString("TRACING_DATADOG_AGENT_ADDRESS"),
			DatadogAPIKey:        v.GetString("TRACING_DATADOG_API_KEY"),
			XRayRegion:           v.GetString("TRACING_XRAY_REGION"),
			AgentEndpoint:        v.GetString("TRACING_AGENT_ENDPOINT"),
			MetricsExporter:      v.GetString("TRACING_METRICS_EXPORTER"),
			PrometheusPort:       v.GetInt("TRACING_PROMETHEUS_PORT"),
		},
		Unsubscribe: UnsubscribeConfig{
			RequireSignature: v.GetBool("UNSUBSCRIBE_REQUIRE_SIGNATURE"),
		},
		Inquiry: InquiryConfig{
			WebhookURL:    v.GetString("INQUIRY_WEBHOOK_URL"),
			WebhookSecret: v.GetString("INQUIRY_WEBHOOK_SECRET"),
		},
		RateLimit: RateLimitConfig{
			Subscribe: v.GetInt("RATE_LIMIT_SUBSCRIBE"),
			Inquiry:   v.GetInt("RATE_LIMIT_INQUIRY"),
			Login:     v.GetInt("RATE_LIMIT_LOGIN"),
		},
		Environment: v.GetString("ENVIRONMENT"),
		SiteURL:     strings.TrimRight(v.GetString("SITE_URL"), "/"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Version:     v.GetString("VERSION"),
	}

	if cfg.Inquiry.WebhookURL != "" && cfg.Inquiry.WebhookSecret == "" {
		return nil, fmt.Errorf("INQUIRY_WEBHOOK_SECRET is required when INQUIRY_WEBHOOK_URL is set")
	}
	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = "no-reply@" + hostOf(cfg.SiteURL)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "wholesail")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("SITE_URL", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)

	v.SetDefault("DRAFT_TTL", "12h")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_MAX_UPLOAD_BYTES", 10<<20)

	v.SetDefault("EMAIL_PROVIDER", "log")
	v.SetDefault("EMAIL_FROM_NAME", "Wholesail")
	v.SetDefault("EMAIL_TIMEOUT", "15s")
	v.SetDefault("CAMPAIGN_SEND_CONCURRENCY", 8)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TLS_POLICY", "opportunistic")

	v.SetDefault("SESSION_TTL", "12h")

	v.SetDefault("BRAND_NAME", "Wholesail")
	v.SetDefault("BRAND_TAGLINE", "Wholesale goods for independent retail")
	v.SetDefault("BRAND_COPYRIGHT_YEAR", time.Now().Year())

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "wholesail-api")
	v.SetDefault("TRACING_SAMPLING_PROBABILITY", 0.1)
	v.SetDefault("TRACING_TRACE_EXPORTER", "none")
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_ZIPKIN_ENDPOINT", "http://localhost:9411/api/v2/spans")
	v.SetDefault("TRACING_DATADOG_AGENT_ADDRESS", "localhost:8126")
	v.SetDefault("TRACING_XRAY_REGION", "us-west-2")
	v.SetDefault("TRACING_AGENT_ENDPOINT", "localhost:8126")
	v.SetDefault("TRACING_METRICS_EXPORTER", "none")
	v.SetDefault("TRACING_PROMETHEUS_PORT", 9464)

	v.SetDefault("UNSUBSCRIBE_REQUIRE_SIGNATURE", false)

	v.SetDefault("RATE_LIMIT_SUBSCRIBE", 5)
	v.SetDefault("RATE_LIMIT_INQUIRY", 5)
	v.SetDefault("RATE_LIMIT_LOGIN", 10)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostOf(siteURL string) string {
	h := strings.TrimPrefix(strings.TrimPrefix(siteURL, "https://"), "http://")
	h, _, _ = strings.Cut(h, "/")
	h, _, _ = strings.Cut(h, ":")
	if h == "" {
		return "localhost"
	}
	return h
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
