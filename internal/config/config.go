package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// AuthRateLimit is requests per second per client IP on the public auth
	// routes. Zero disables the limiter.
	AuthRateLimit float64
	AuthRateBurst int
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	BucketAudit string
	UseSSL      bool
	Region      string
}

type SecurityConfig struct {
	SessionTTL             time.Duration
	CookieName             string
	CookieSecure           bool
	OTPPepper              string
	AdminBootstrapPassword string
	MinPasswordLength      int
}

type OTPConfig struct {
	CodeTTL         time.Duration
	MaxAttempts     int
	Cooldown        time.Duration
	VerificationTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type MailConfig struct {
	Driver        string
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	SMTP          SMTPConfig
}

type JobsConfig struct {
	Enabled         bool
	SweepSpec       string
	AuditExportSpec string
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	OTP              OTPConfig
	Mail             MailConfig
	Jobs             JobsConfig
	Log              LogConfig
	AllowCORSOrigins []string
}

const (
	MailDriverQueue = "queue"
	MailDriverLog   = "log"
)

func Load() (*AppConfig, error) {
	// A .env file is optional and never overrides variables already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CASEPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("otp.maxattempts must be at least 1"))
	}
	if c.OTP.CodeTTL <= 0 || c.OTP.VerificationTTL <= 0 {
		errs = append(errs, errors.New("otp ttls must be positive"))
	}
	if c.HTTP.AuthRateLimit < 0 {
		errs = append(errs, errors.New("http.authratelimit must not be negative"))
	}
	if c.Security.SessionTTL <= 0 {
		errs = append(errs, errors.New("security.sessionttl must be positive"))
	}
	if c.Environment == "production" && c.Security.OTPPepper == "" {
		errs = append(errs, errors.New("security.otppepper is required in production"))
	}
	switch c.Mail.Driver {
	case MailDriverQueue, MailDriverLog:
	default:
		errs = append(errs, fmt.Errorf("mail.driver %q is not supported", c.Mail.Driver))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.authratelimit", 1.0)
	v.SetDefault("http.authrateburst", 10)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketaudit", "caseportal-audit")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionttl", "12h")
	v.SetDefault("security.cookiename", "caseportal_session")
	v.SetDefault("security.cookiesecure", true)
	v.SetDefault("security.otppepper", "")
	v.SetDefault("security.adminbootstrappassword", "")
	v.SetDefault("security.minpasswordlength", 8)

	v.SetDefault("otp.codettl", "10m")
	v.SetDefault("otp.maxattempts", 5)
	v.SetDefault("otp.cooldown", "60s")
	v.SetDefault("otp.verificationttl", "15m")

	v.SetDefault("mail.driver", MailDriverQueue)
	v.SetDefault("mail.stream", "mail:outbound")
	v.SetDefault("mail.group", "mailers")
	v.SetDefault("mail.consumer", "mailer-1")
	v.SetDefault("mail.claiminterval", "30s")
	v.SetDefault("mail.smtp.host", "127.0.0.1")
	v.SetDefault("mail.smtp.port", 25)
	v.SetDefault("mail.smtp.username", "")
	v.SetDefault("mail.smtp.password", "")
	v.SetDefault("mail.smtp.from", "no-reply@localhost")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.sweepspec", "0 */15 * * * *")
	v.SetDefault("jobs.auditexportspec", "0 10 0 * * *")

	v.SetDefault("log.level", "")
	v.SetDefault("allowcorsorigins", "")
}
