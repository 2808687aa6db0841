// Package config provides environment handling for the Globus SDK. It
// resolves per-service base URLs for the selected Globus environment and
// loads optional client settings from a YAML file and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable is the process environment variable consulted for the
// active Globus environment when none is passed explicitly.
const EnvironmentVariable = "GLOBUS_SDK_ENVIRONMENT"

// httpTimeoutVariable overrides the default HTTP timeout, in seconds.
const httpTimeoutVariable = "GLOBUS_SDK_HTTP_TIMEOUT"

// DefaultHTTPTimeout is applied when neither the config file nor the
// environment specifies a timeout.
const DefaultHTTPTimeout = 60 * time.Second

// serviceURLs maps service names to production base URLs. Non-production
// environments derive their URLs from the service name and environment.
var serviceURLs = map[string]string{
	"auth":     "https://auth.globus.org/",
	"flows":    "https://flows.globus.org/",
	"transfer": "https://transfer.api.globus.org/",
	"groups":   "https://groups.api.globus.org/",
	"search":   "https://search.api.globus.org/",
}

// EnvironmentName resolves the active environment. An explicit non-empty
// value wins, then the GLOBUS_SDK_ENVIRONMENT variable, then "production".
func EnvironmentName(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if fromEnv := os.Getenv(EnvironmentVariable); fromEnv != "" {
		log.Debugf("config: environment %q read from %s", fromEnv, EnvironmentVariable)
		return fromEnv
	}
	return "production"
}

// ServiceURL returns the base URL for a service in the given environment.
// Unknown services return an error rather than guessing a hostname.
func ServiceURL(environment, service string) (string, error) {
	productionURL, ok := serviceURLs[service]
	if !ok {
		return "", fmt.Errorf("config: no base URL known for service %q", service)
	}
	if environment == "" || environment == "production" || environment == "default" {
		return productionURL, nil
	}
	// non-production environments follow a fixed hostname pattern
	return fmt.Sprintf("https://%s.%s.globuscs.info/", service, environment), nil
}

// HTTPTimeout resolves the HTTP timeout for new transports. A value of -1
// seconds in the environment disables the timeout entirely.
func HTTPTimeout() time.Duration {
	raw := os.Getenv(httpTimeoutVariable)
	if raw == "" {
		return DefaultHTTPTimeout
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("config: invalid %s value %q, using default", httpTimeoutVariable, raw)
		return DefaultHTTPTimeout
	}
	if seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Config represents optional client settings, loaded from a YAML file.
type Config struct {
	// Environment selects the Globus environment for all services.
	Environment string `yaml:"environment,omitempty"`

	// ProxyURL is the URL of an optional proxy server to use for outbound
	// requests.
	ProxyURL string `yaml:"proxy-url,omitempty"`

	// HTTPTimeoutSeconds bounds each HTTP round trip. Zero means the SDK
	// default; -1 disables the timeout.
	HTTPTimeoutSeconds int `yaml:"http-timeout-seconds,omitempty"`

	// SSLVerify controls TLS certificate verification. Defaults to true.
	SSLVerify *bool `yaml:"ssl-verify,omitempty"`

	// AppName is appended to the User-Agent header for debugging with the
	// Globus team. It has no semantic effect.
	AppName string `yaml:"app-name,omitempty"`
}

// Timeout converts HTTPTimeoutSeconds into a duration, applying defaults.
func (c *Config) Timeout() time.Duration {
	switch {
	case c == nil || c.HTTPTimeoutSeconds == 0:
		return HTTPTimeout()
	case c.HTTPTimeoutSeconds < 0:
		return 0
	default:
		return time.Duration(c.HTTPTimeoutSeconds) * time.Second
	}
}

// VerifySSL reports whether TLS verification is enabled.
func (c *Config) VerifySSL() bool {
	if c == nil || c.SSLVerify == nil {
		return true
	}
	return *c.SSLVerify
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads a YAML config file. When optional is true a
// missing file yields an empty config instead of an error.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && os.IsNotExist(err) {
			log.Debugf("config: no config file at %s, using defaults", configFile)
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", configFile, err)
	}
	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", configFile, err)
	}
	return &cfg, nil
}
