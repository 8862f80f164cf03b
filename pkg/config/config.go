// Package config loads site configuration from defaults, an optional YAML
// file and the environment, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config holds all application configuration values.
type Config struct {
	Environment string         `koanf:"environment"`
	Server      ServerConfig   `koanf:"server"`
	Mongo       MongoConfig    `koanf:"mongo"`
	R2          R2Config       `koanf:"r2"`
	Mail        MailConfig     `koanf:"mail"`
	Site        SiteConfig     `koanf:"site"`
	Cloudinary  CloudinaryConf `koanf:"cloudinary"`
	Export      ExportConfig   `koanf:"export"`
	Log         LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	// TrustedProxies are the addresses or CIDRs allowed to set
	// X-Forwarded-For. Empty means the peer address is the client.
	TrustedProxies []string `koanf:"trusted_proxies"`
	// ContactRateLimit is the number of contact submissions allowed per IP
	// within ContactRateWindow.
	ContactRateLimit  int           `koanf:"contact_rate_limit"`
	ContactRateWindow time.Duration `koanf:"contact_rate_window"`
	UploadRateLimit   int           `koanf:"upload_rate_limit"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type R2Config struct {
	AccountID       string        `koanf:"account_id"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	BucketName      string        `koanf:"bucket_name"`
	PublicURL       string        `koanf:"public_url"`
	PresignExpiry   time.Duration `koanf:"presign_expiry"`
}

// MailConfig configures Gmail SMTP delivery.
type MailConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	User        string `koanf:"user"`
	AppPassword string `koanf:"app_password"`
	FromName    string `koanf:"from_name"`
	// AdminEmail receives contact notifications. Defaults to User.
	AdminEmail string        `koanf:"admin_email"`
	Timeout    time.Duration `koanf:"timeout"`
}

type SiteConfig struct {
	URL         string `koanf:"url"`
	AdminAPIURL string `koanf:"admin_api_url"`
	CompanyName string `koanf:"company_name"`
}

type CloudinaryConf struct {
	CloudName string `koanf:"cloud_name"`
}

// ExportConfig points the contact export at a Postgres database, either
// directly or through a Supabase project.
type ExportConfig struct {
	PostgresDSN              string `koanf:"postgres_dsn"`
	SupabaseURL              string `koanf:"supabase_url"`
	SupabaseAPIKey           string `koanf:"supabase_api_key"`
	SupabasePassword         string `koanf:"supabase_password"`
	SupabaseConnectionString string `koanf:"supabase_connection_string"`
	BatchSize                int    `koanf:"batch_size"`
	Workers                  int    `koanf:"workers"`
}

// UsesSupabase reports whether the export goes through Supabase.
func (e ExportConfig) UsesSupabase() bool {
	return e.PostgresDSN == "" && (e.SupabaseURL != "" || e.SupabaseConnectionString != "")
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Environment: "production",
		Server: ServerConfig{
			Port:              8080,
			Host:              "0.0.0.0",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			ContactRateLimit:  3,
			ContactRateWindow: 15 * time.Minute,
			UploadRateLimit:   10,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "altiora",
			ConnectTimeout: 10 * time.Second,
		},
		R2: R2Config{
			PresignExpiry: 15 * time.Minute,
		},
		Mail: MailConfig{
			Host:     "smtp.gmail.com",
			Port:     587,
			FromName: "Altiora Infotech",
			Timeout:  20 * time.Second,
		},
		Site: SiteConfig{
			URL:         "http://localhost:3000",
			CompanyName: "Altiora Infotech",
		},
		Export: ExportConfig{
			BatchSize: 100,
			Workers:   5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration: defaults, then the YAML file (if any), then env.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for _, path := range []string{"server.allowed_origins", "server.trusted_proxies"} {
		if err := splitCommaList(k, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings maps the environment names the site has always used onto
// koanf paths. Unknown variables are dropped.
var envMappings = map[string]string{
	"environment":                "environment",
	"port":                       "server.port",
	"allowed_origins":            "server.allowed_origins",
	"trusted_proxies":            "server.trusted_proxies",
	"contact_rate_limit":         "server.contact_rate_limit",
	"upload_rate_limit":          "server.upload_rate_limit",
	"mongodb_uri":                "mongo.uri",
	"mongodb_database":           "mongo.database",
	"r2_account_id":              "r2.account_id",
	"r2_access_key_id":           "r2.access_key_id",
	"r2_secret_access_key":       "r2.secret_access_key",
	"r2_bucket_name":             "r2.bucket_name",
	"r2_public_url":              "r2.public_url",
	"gmail_user":                 "mail.user",
	"gmail_app_password":         "mail.app_password",
	"admin_email":                "mail.admin_email",
	"smtp_host":                  "mail.host",
	"smtp_port":                  "mail.port",
	"cloudinary_cloud_name":      "cloudinary.cloud_name",
	"admin_api_url":              "site.admin_api_url",
	"next_public_site_url":       "site.url",
	"site_url":                   "site.url",
	"postgres_dsn":               "export.postgres_dsn",
	"supabase_url":               "export.supabase_url",
	"supabase_api_key":           "export.supabase_api_key",
	"supabase_db_password":       "export.supabase_password",
	"supabase_connection_string": "export.supabase_connection_string",
	"log_level":                  "log.level",
	"log_format":                 "log.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Site.URL = strings.TrimRight(c.Site.URL, "/")
	c.Site.AdminAPIURL = strings.TrimRight(c.Site.AdminAPIURL, "/")
	c.R2.PublicURL = strings.TrimRight(c.R2.PublicURL, "/")
	if c.Mail.AdminEmail == "" {
		c.Mail.AdminEmail = c.Mail.User
	}
}

// IsDevelopment reports whether ENVIRONMENT=development. Anything else,
// including an unset variable, is treated as production.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Origins returns the origins allowed to post forms: the site URL, any
// configured extras and, in development only, localhost dev servers.
func (c *Config) Origins() []string {
	seen := map[string]bool{}
	var out []string
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	add(c.Site.URL)
	if u, err := url.Parse(c.Site.URL); err == nil && u.Host != "" && !strings.HasPrefix(u.Host, "www.") {
		add(u.Scheme + "://www." + u.Host)
	}
	for _, o := range c.Server.AllowedOrigins {
		add(o)
	}
	if c.IsDevelopment() {
		add("http://localhost:3000")
		add("http://127.0.0.1:3000")
	}
	return out
}

// Errors returned by the Validate* helpers.
var (
	ErrMissingMongo = errors.New("MONGODB_URI is required")
	ErrMissingR2    = errors.New("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME and R2_PUBLIC_URL are required")
	ErrMissingMail  = errors.New("GMAIL_USER and GMAIL_APP_PASSWORD are required")
	ErrMissingSite  = errors.New("NEXT_PUBLIC_SITE_URL must be an absolute URL")
	ErrMissingCloud = errors.New("CLOUDINARY_CLOUD_NAME is required")
	ErrMissingPG    = errors.New("POSTGRES_DSN or SUPABASE_URL with SUPABASE_DB_PASSWORD is required")
)

// ValidateServer checks the settings the HTTP server cannot start without.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, ErrMissingMongo)
	}
	if u, err := url.Parse(c.Site.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ErrMissingSite)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

// ValidateR2 checks object storage settings.
func (c *Config) ValidateR2() error {
	r := c.R2
	if r.AccountID == "" || r.AccessKeyID == "" || r.SecretAccessKey == "" || r.BucketName == "" || r.PublicURL == "" {
		return ErrMissingR2
	}
	return nil
}

// ValidateMail checks SMTP settings.
func (c *Config) ValidateMail() error {
	if c.Mail.User == "" || c.Mail.AppPassword == "" {
		return ErrMissingMail
	}
	return nil
}

// ValidateCloudinary checks settings needed by the asset migration.
func (c *Config) ValidateCloudinary() error {
	if c.Cloudinary.CloudName == "" {
		return ErrMissingCloud
	}
	return nil
}

// ValidateExport checks that the contact export has somewhere to write.
func (c *Config) ValidateExport() error {
	e := c.Export
	switch {
	case e.PostgresDSN != "", e.SupabaseConnectionString != "":
		return nil
	case e.SupabaseURL != "" && e.SupabasePassword != "":
		return nil
	}
	return ErrMissingPG
}
