// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the notification sender.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"gopkg.in/yaml.v3"

	"github.com/shineum/ses-notify/internal/provider/ses"
	"github.com/shineum/ses-notify/internal/sigv4"
)

const (
	// CredentialSourceStatic reads keys from config or environment.
	CredentialSourceStatic = "static"
	// CredentialSourceDefault resolves keys through the AWS SDK default chain.
	CredentialSourceDefault = "default"
)

// Config holds the complete application configuration.
type Config struct {
	Provider string         `yaml:"provider"`
	SES      SESConfig      `yaml:"ses"`
	Database DatabaseConfig `yaml:"database"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SESConfig holds Amazon SES configuration.
type SESConfig struct {
	Region           string        `yaml:"region"`
	AccessKeyID      string        `yaml:"access_key_id"`
	SecretAccessKey  string        `yaml:"secret_access_key"`
	Sender           string        `yaml:"sender"`
	Endpoint         string        `yaml:"endpoint"`
	CredentialSource string        `yaml:"credential_source"`
	SendMode         string        `yaml:"send_mode"`
	Timeout          time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds the delivery log database settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// NotifyConfig holds settings for the confirmation emails.
type NotifyConfig struct {
	Timezone      string `yaml:"timezone"`
	OrganizerName string `yaml:"organizer_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Validate rejects unknown enumerated values.
func (c *Config) Validate() error {
	switch c.Provider {
	case "ses", "stdout":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.SES.CredentialSource {
	case CredentialSourceStatic, CredentialSourceDefault:
	default:
		return fmt.Errorf("unknown credential source %q", c.SES.CredentialSource)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// SESConfigured returns true if static keys, region and sender are all set.
// With the default credential source only region and sender are required.
func (c *Config) SESConfigured() bool {
	if c.SES.Region == "" || c.SES.Sender == "" {
		return false
	}
	if c.SES.CredentialSource == CredentialSourceDefault {
		return true
	}
	return c.SES.AccessKeyID != "" && c.SES.SecretAccessKey != ""
}

// SigningCredentials builds the credentials used to sign SES requests.
// Missing static keys are not an error here: the delivery pipeline reports
// them per recipient.
func (c *Config) SigningCredentials(ctx context.Context) (sigv4.Credentials, error) {
	if c.SES.CredentialSource == CredentialSourceDefault {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.SES.Region))
		if err != nil {
			return sigv4.Credentials{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return sigv4.FromProvider(ctx, awsCfg.Credentials, c.SES.Region, ses.Service)
	}

	if c.SES.AccessKeyID == "" || c.SES.SecretAccessKey == "" {
		return sigv4.Credentials{
			AccessKeyID: c.SES.AccessKeyID,
			SecretKey:   c.SES.SecretAccessKey,
			Region:      c.SES.Region,
			Service:     ses.Service,
		}, nil
	}

	var provider aws.CredentialsProvider = credentials.NewStaticCredentialsProvider(
		c.SES.AccessKeyID, c.SES.SecretAccessKey, "")
	return sigv4.FromProvider(ctx, provider, c.SES.Region, ses.Service)
}

// Location returns the zone used to display booking times.
func (c *Config) Location() (*time.Location, error) {
	if c.Notify.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid notify timezone: %w", err)
	}
	return loc, nil
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Provider = "ses"
	c.SES.Region = "us-east-1"
	c.SES.CredentialSource = CredentialSourceStatic
	c.SES.SendMode = "auto"
	c.Notify.Timezone = "UTC"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := firstEnv("SES_REGION", "AWS_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := firstEnv("SES_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := firstEnv("SES_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}
	if v := os.Getenv("SES_ENDPOINT"); v != "" {
		c.SES.Endpoint = v
	}
	if v := os.Getenv("SES_CREDENTIAL_SOURCE"); v != "" {
		c.SES.CredentialSource = strings.ToLower(v)
	}
	if v := os.Getenv("SES_SEND_MODE"); v != "" {
		c.SES.SendMode = strings.ToLower(v)
	}
	if v := os.Getenv("SES_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SES.Timeout = d
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}

	if v := os.Getenv("NOTIFY_TIMEZONE"); v != "" {
		c.Notify.Timezone = v
	}
	if v := os.Getenv("NOTIFY_ORGANIZER_NAME"); v != "" {
		c.Notify.OrganizerName = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
