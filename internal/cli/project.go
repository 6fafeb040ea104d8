package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ffmm-chile/ffmm/internal/config"
	"github.com/ffmm-chile/ffmm/internal/source"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

const configFileHint = config.ConfigFileName

// Environment variables for S3-hosted sources. Credentials are read only
// from the environment, never from the project file.
const (
	envS3Endpoint = "FFMM_S3_ENDPOINT"
	envS3UseSSL   = "FFMM_S3_USE_SSL"
	envS3Region   = "FFMM_S3_REGION"
	envAWSAccess  = "AWS_ACCESS_KEY_ID"
	envAWSSecret  = "AWS_SECRET_ACCESS_KEY"
	envAWSRegion  = "AWS_REGION"
	envHTTPPort   = "PORT"
	defaultPort   = "8000"
)

// loadProjectConfig reads .env into the process environment, then the
// project file named by --config or ./ffmm.yaml. A missing ./ffmm.yaml is
// not an error; a missing --config file is.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w: %w", path, ffmm.ErrInvalidConfig, err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(".")
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, ffmm.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// s3ConfigFor merges the environment over the project file's s3 section.
// ok is false when no endpoint is configured.
func s3ConfigFor(projectCfg *config.ProjectConfig) (cfg source.S3Config, ok bool, err error) {
	var section config.S3Section
	if projectCfg != nil {
		section = projectCfg.S3
	}

	cfg = source.S3Config{
		Endpoint:  firstNonEmpty(os.Getenv(envS3Endpoint), section.Endpoint),
		AccessKey: os.Getenv(envAWSAccess),
		SecretKey: os.Getenv(envAWSSecret),
		Region:    firstNonEmpty(os.Getenv(envS3Region), section.Region, os.Getenv(envAWSRegion)),
		Secure:    true,
	}
	if section.UseSSL != nil {
		cfg.Secure = *section.UseSSL
	}
	if v := os.Getenv(envS3UseSSL); v != "" {
		secure, perr := strconv.ParseBool(v)
		if perr != nil {
			return cfg, false, fmt.Errorf("%s=%q is not a boolean: %w", envS3UseSSL, v, ffmm.ErrInvalidConfig)
		}
		cfg.Secure = secure
	}
	return cfg, cfg.Endpoint != "", nil
}

// newSourceReader builds a reader for local paths and, when an endpoint is
// configured, s3:// URIs.
func newSourceReader(projectCfg *config.ProjectConfig) (*source.Reader, error) {
	s3cfg, ok, err := s3ConfigFor(projectCfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return source.NewReader(source.NewOpener(nil)), nil
	}

	fetcher, err := source.NewS3Fetcher(s3cfg)
	if err != nil {
		return nil, err
	}
	return source.NewReader(source.NewOpener(fetcher)), nil
}

// httpPort returns --port, then $PORT, then 8000.
func httpPort(flag string) string {
	return firstNonEmpty(flag, os.Getenv(envHTTPPort), defaultPort)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
