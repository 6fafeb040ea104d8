package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ffmm-chile/ffmm/internal/config"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD, a connection string or, for
// cloud auth, a token.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty returns true if no granular flag was provided.
func (g *GranularConnFlags) IsEmpty() bool {
	return g == nil || (g.Host == "" && g.Port == 0 && g.Username == "" && g.Database == "" && g.SSLMode == "")
}

// CloudFlags select and parameterize cloud IAM authentication. They override
// the corresponding environment variables and ffmm.yaml settings.
type CloudFlags struct {
	AuthMethod     string
	AWSRegion      string
	GoogleInstance string
	AzureTenantID  string
	AzureClientID  string
}

// EnvVars is a snapshot of the environment variables the resolver reads.
type EnvVars struct {
	DB_URL       string // Full connection string; legacy driver-qualified schemes accepted
	DATABASE_URL string // Full connection string (Heroku/Rails convention)

	PGHOST     string
	PGPORT     string
	PGUSER     string
	PGPASSWORD string
	PGDATABASE string
	PGSSLMODE  string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment snapshots the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		DB_URL:              os.Getenv("DB_URL"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

func (e *EnvVars) hasGranular() bool {
	return e.PGHOST != "" || e.PGPORT != "" || e.PGUSER != "" || e.PGDATABASE != ""
}

// ResolveConnectionParams resolves the database connection with this precedence:
//
//  1. --connection flag
//  2. granular flags (-h, -p, -U, -d, --sslmode), backed by PG* env vars and ffmm.yaml
//  3. DB_URL
//  4. DATABASE_URL
//  5. PG* environment variables
//  6. ffmm.yaml connection section (url, then host/database)
//
// Missing granular values fall back to localhost:5432 with sslmode=prefer.
// When nothing at all names a server the result is ffmm.ErrInvalidConfig.
//
// Giving both --connection and granular flags is an error.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*ffmm.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, -d)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/fondos\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U myuser -d fondos\n"+
				"  3. Environment: export DB_URL=postgresql://user@localhost:5432/fondos: %w", ffmm.ErrInvalidConfig)
	}

	var cfg *ffmm.ConnectionConfig
	var err error
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case !granularFlags.IsEmpty():
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	case envVars.DB_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DB_URL, envVars)
	case envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	case envVars.hasGranular():
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	case pc.URL != "":
		cfg, err = resolveFromConnectionString(pc.URL, envVars)
	case !pc.IsEmpty():
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	default:
		return nil, fmt.Errorf("no database connection configured: set DB_URL, pass --connection or add a connection section to %s: %w",
			config.ConfigFileName, ffmm.ErrInvalidConfig)
	}
	if err != nil {
		return nil, err
	}

	if err := applyCloudAuth(cfg, cloudFlags, envVars, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseAuthMethod maps a flag or yaml value to an AuthMethod.
func ParseAuthMethod(s string) (ffmm.AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return ffmm.AuthMethodStandard, nil
	case "aws", "aws-iam", "rds-iam":
		return ffmm.AuthMethodAWSIAM, nil
	case "google", "gcp", "google-iam", "cloudsql":
		return ffmm.AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return ffmm.AuthMethodAzureEntraID, nil
	}
	return ffmm.AuthMethodStandard, fmt.Errorf("auth method %q: %w", s, ffmm.ErrUnsupportedAuthMethod)
}

// applyCloudAuth attaches IAM settings. Precedence per value: flag > env > ffmm.yaml.
// Without an explicit method, Azure credentials in the environment select Entra ID.
func applyCloudAuth(cfg *ffmm.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
	cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET

	method := firstNonEmpty(flags.AuthMethod, pc.AuthMethod)
	if method == "" {
		if env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != "" || flags.AzureTenantID != "" || flags.AzureClientID != "" {
			cfg.AuthMethod = ffmm.AuthMethodAzureEntraID
		}
		return nil
	}

	parsed, err := ParseAuthMethod(method)
	if err != nil {
		return err
	}
	cfg.AuthMethod = parsed
	return nil
}

// resolveFromConnectionString parses connStr; PGSSLMODE fills an unset sslmode.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*ffmm.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	lower := strings.ToLower(connStr)
	if !strings.Contains(lower, "sslmode") && !strings.Contains(lower, "ssl mode") && envVars.PGSSLMODE != "" {
		cfg.SSLMode = envVars.PGSSLMODE
	}
	return cfg, nil
}

// resolveFromGranularParams builds a config value by value: flag > env > ffmm.yaml > default.
func resolveFromGranularParams(flags *GranularConnFlags, envVars *EnvVars, pc config.ConnectionConfig) (*ffmm.ConnectionConfig, error) {
	cfg := &ffmm.ConnectionConfig{
		AuthMethod:       ffmm.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, ffmm.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database, "postgres")
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")
	cfg.SSLCert = pc.SSLCert
	cfg.SSLKey = pc.SSLKey
	cfg.SSLRootCert = pc.SSLRootCert

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
