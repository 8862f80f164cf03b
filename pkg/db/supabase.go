package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds configuration required to reach a Supabase project.
type SupabaseConfig struct {
	// ConnectionString is used as-is when set. Otherwise it is derived from
	// ProjectURL and Password.
	ConnectionString string

	// ProjectURL looks like https://<project-ref>.supabase.co
	ProjectURL string
	// APIKey enables the SDK client. Use the service_role key server side.
	APIKey string
	// Password is the database password, not the API key.
	Password string

	Pool PoolConfig
}

// SupabaseClient provides a direct Postgres handle and, when an API key is
// configured, the Supabase SDK client.
type SupabaseClient struct {
	db  *sql.DB
	sdk *supabase.Client
	cfg SupabaseConfig
}

func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect initializes the SDK (if a key is set) and the direct database pool.
// The export needs SQL, so a missing direct connection is an error.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.ProjectURL != "" && c.cfg.APIKey != "" {
		sdk, err := supabase.NewClient(c.cfg.ProjectURL, c.cfg.APIKey, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.sdk = sdk
	}

	connStr := c.cfg.ConnectionString
	if connStr == "" {
		var err error
		connStr, err = BuildSupabaseDSN(c.cfg.ProjectURL, c.cfg.Password)
		if err != nil {
			return fmt.Errorf("build connection string: %w", err)
		}
	}

	// Supabase's pooler does not support prepared statement caching.
	connStr = addConnectionParam(connStr, "statement_cache_capacity", "0")
	connStr = addConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

	db, err := openPgx(ctx, connStr, c.cfg.Pool)
	if err != nil {
		return fmt.Errorf("supabase: %w", err)
	}
	c.db = db
	return nil
}

func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// SDK returns the Supabase SDK client, or nil when no API key was given.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.sdk
}

// ErrNoSDK is returned by SDK-backed helpers when no API key was configured.
var ErrNoSDK = errors.New("supabase SDK not configured")

// CountRows asks PostgREST for the exact row count of table.
func (c *SupabaseClient) CountRows(table string) (int64, error) {
	if c.sdk == nil {
		return 0, ErrNoSDK
	}
	_, count, err := c.sdk.From(table).Select("id", "exact", true).Execute()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// BuildSupabaseDSN derives the direct database DSN from a project URL.
func BuildSupabaseDSN(projectURL, password string) (string, error) {
	if projectURL == "" {
		return "", fmt.Errorf("supabase URL is required when connection string is not provided")
	}
	if password == "" {
		return "", fmt.Errorf("supabase password is required when connection string is not provided")
	}

	parsed, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}
	parts := strings.Split(parsed.Host, ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("invalid supabase URL format: expected <project-ref>.supabase.co")
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(password), parts[0]), nil
}

func addConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return connStr + sep + key + "=" + value
}
