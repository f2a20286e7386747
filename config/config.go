// Package config builds the effective settings for a review run.
//
// Precedence is defaults <- .env file <- process environment <- CLI overrides.
// The .env file never overrides variables already present in the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go-reviewlens/failure"
)

// Provider names accepted by NLP_PROVIDER / --provider.
const (
	ProviderAzure  = "azure"
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
	ProviderReplay = "replay"
)

const (
	DefaultFolder      = "reviews"
	DefaultAPIVersion  = "2023-04-01"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultAuthority   = "https://login.microsoftonline.com"
)

// Config holds every setting a run needs.
type Config struct {
	Folder     string
	Provider   string
	SkipHidden bool

	Azure  AzureConfig
	Google GoogleConfig
	OpenAI OpenAIConfig
	// ReplayFixture is the YAML file served by the replay provider.
	ReplayFixture string

	// RateLimit is the maximum remote calls per second; 0 disables limiting.
	RateLimit float64
	// Timeout bounds each remote call; 0 leaves the client default.
	Timeout time.Duration

	MetricsFile string
	LogLevel    string
	LogFormat   string
}

// AzureConfig holds the Azure AI Language endpoint and credential inputs.
type AzureConfig struct {
	Endpoint      string
	APIVersion    string
	Key           string
	TenantID      string
	ClientID      string
	ClientSecret  string
	AuthorityHost string
	// ManagedIdentityClientID selects a user-assigned identity.
	ManagedIdentityClientID string
	// IMDSEndpoint overrides the instance metadata token endpoint.
	IMDSEndpoint string
	// Interactive enables the device-code fallback at the end of the chain.
	Interactive bool
	// DisableCLI skips the Azure CLI credential.
	DisableCLI bool
}

// GoogleConfig holds Cloud Natural Language settings.
type GoogleConfig struct {
	// CredentialsB64 is a base64 encoded service account JSON. Empty uses
	// application default credentials.
	CredentialsB64 string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Folder:     DefaultFolder,
		Provider:   ProviderAzure,
		SkipHidden: true,
		Azure: AzureConfig{
			APIVersion:    DefaultAPIVersion,
			AuthorityHost: DefaultAuthority,
		},
		OpenAI: OpenAIConfig{
			Model: DefaultOpenAIModel,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads envFile (a missing file is fine), then the environment, then
// overrides, and validates the result. The overrides map comes from CLI
// flags; only non-empty values are applied. A variable set in the
// environment wins over the file unless it is blank.
func Load(envFile string, overrides map[string]string) (Config, error) {
	var fileVars map[string]string
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, failure.Config("load env file", fmt.Errorf("%s: %w", envFile, err))
		}
	}
	return FromLookup(layered(os.LookupEnv, fileVars), overrides)
}

// layered looks a key up in env first and falls back to file when the
// variable is missing or blank.
func layered(env func(string) (string, bool), file map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := env(key); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool), overrides map[string]string) (Config, error) {
	cfg := Default()
	if err := mergeEnv(&cfg, lookup); err != nil {
		return Config{}, failure.Config("read environment", err)
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, failure.Config("apply flags", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, failure.Config("validate config", err)
	}
	return cfg, nil
}

func mergeEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	setString(&cfg.Folder, get("REVIEWS_FOLDER"))
	setString(&cfg.Provider, strings.ToLower(get("NLP_PROVIDER")))

	setString(&cfg.Azure.Endpoint, get("AI_SERVICE_ENDPOINT"))
	setString(&cfg.Azure.APIVersion, get("AI_SERVICE_API_VERSION"))
	setString(&cfg.Azure.Key, get("AI_SERVICE_KEY"))
	setString(&cfg.Azure.TenantID, get("AZURE_TENANT_ID"))
	setString(&cfg.Azure.ClientID, get("AZURE_CLIENT_ID"))
	setString(&cfg.Azure.ClientSecret, get("AZURE_CLIENT_SECRET"))
	setString(&cfg.Azure.AuthorityHost, get("AZURE_AUTHORITY_HOST"))
	setString(&cfg.Azure.ManagedIdentityClientID, get("AZURE_MANAGED_IDENTITY_CLIENT_ID"))
	setString(&cfg.Azure.IMDSEndpoint, get("AZURE_IMDS_ENDPOINT"))

	setString(&cfg.Google.CredentialsB64, get("NATURAL_LANGUAGE_CREDENTIALS"))

	setString(&cfg.OpenAI.APIKey, get("OPENAI_API_KEY"))
	setString(&cfg.OpenAI.Model, get("OPENAI_MODEL"))
	setString(&cfg.OpenAI.BaseURL, get("OPENAI_BASE_URL"))

	setString(&cfg.ReplayFixture, get("REPLAY_FIXTURE"))
	setString(&cfg.MetricsFile, get("METRICS_FILE"))
	setString(&cfg.LogLevel, get("LOG_LEVEL"))
	setString(&cfg.LogFormat, get("LOG_FORMAT"))

	var err error
	if cfg.Azure.Interactive, err = parseBool("AZURE_INTERACTIVE", get("AZURE_INTERACTIVE"), cfg.Azure.Interactive); err != nil {
		return err
	}
	if cfg.Azure.DisableCLI, err = parseBool("AZURE_DISABLE_CLI", get("AZURE_DISABLE_CLI"), cfg.Azure.DisableCLI); err != nil {
		return err
	}
	if cfg.RateLimit, err = parseFloat("NLP_RATE_LIMIT", get("NLP_RATE_LIMIT"), cfg.RateLimit); err != nil {
		return err
	}
	if cfg.Timeout, err = parseDuration("NLP_TIMEOUT", get("NLP_TIMEOUT"), cfg.Timeout); err != nil {
		return err
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	if overrides == nil {
		return nil
	}
	setString(&cfg.Folder, overrides["folder"])
	setString(&cfg.Provider, strings.ToLower(overrides["provider"]))
	setString(&cfg.Azure.Endpoint, overrides["endpoint"])
	setString(&cfg.ReplayFixture, overrides["replayFixture"])
	setString(&cfg.MetricsFile, overrides["metricsFile"])
	setString(&cfg.LogLevel, overrides["logLevel"])
	setString(&cfg.LogFormat, overrides["logFormat"])

	var err error
	if cfg.Azure.Interactive, err = parseBool("--interactive", overrides["interactive"], cfg.Azure.Interactive); err != nil {
		return err
	}
	if cfg.SkipHidden, err = parseBool("--skip-hidden", overrides["skipHidden"], cfg.SkipHidden); err != nil {
		return err
	}
	if cfg.RateLimit, err = parseFloat("--rate-limit", overrides["rateLimit"], cfg.RateLimit); err != nil {
		return err
	}
	if cfg.Timeout, err = parseDuration("--timeout", overrides["timeout"], cfg.Timeout); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings the selected provider depends on.
func (c Config) Validate() error {
	if c.Folder == "" {
		return errors.New("reviews folder cannot be empty")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}

	switch c.Provider {
	case ProviderAzure:
		if c.Azure.Endpoint == "" {
			return errors.New("AI_SERVICE_ENDPOINT is not set")
		}
		if err := validateURL("AI_SERVICE_ENDPOINT", c.Azure.Endpoint); err != nil {
			return err
		}
		if c.Azure.APIVersion == "" {
			return errors.New("api version cannot be empty")
		}
	case ProviderGoogle:
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is not set")
		}
		if c.OpenAI.Model == "" {
			return errors.New("openai model cannot be empty")
		}
		if c.OpenAI.BaseURL != "" {
			if err := validateURL("OPENAI_BASE_URL", c.OpenAI.BaseURL); err != nil {
				return err
			}
		}
	case ProviderReplay:
		if c.ReplayFixture == "" {
			return errors.New("REPLAY_FIXTURE is not set")
		}
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseBool(name, v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean: %w", name, err)
	}
	return b, nil
}

func parseFloat(name, v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s must be a number: %w", name, err)
	}
	return f, nil
}

func parseDuration(name, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a duration like 30s: %w", name, err)
	}
	return d, nil
}
