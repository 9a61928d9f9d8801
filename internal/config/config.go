// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/advtools/calculo-engine/internal/series"
	"github.com/advtools/calculo-engine/pkg/constants"
	"github.com/advtools/calculo-engine/pkg/indices"
	"github.com/advtools/calculo-engine/pkg/interest"
)

// Configuration holds all configuration for the calculation service.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Provider ProviderConfig `yaml:"provider,omitempty"`
	Interest InterestConfig `yaml:"interest,omitempty"`
	// FallbackRates overrides the built-in per-index estimate rates. Keys
	// are index codes (ipca, selic, ...), values are percent per month.
	FallbackRates map[string]float64 `yaml:"fallbackRates,omitempty"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// ServerConfig holds the HTTP listener options.
type ServerConfig struct {
	Address      string        `yaml:"address,omitempty"`
	ReadTimeout  time.Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty"`
}

// ProviderConfig holds the time-series source options.
type ProviderConfig struct {
	BaseURL        string        `yaml:"baseURL,omitempty"`
	FetchTimeout   time.Duration `yaml:"fetchTimeout,omitempty"`
	LatestCacheTTL time.Duration `yaml:"latestCacheTTL,omitempty"`
}

// InterestConfig holds the statutory interest rate overrides in percent per
// month. Zero values keep the statutory defaults.
type InterestConfig struct {
	CivilMonthlyRate float64 `yaml:"civilMonthlyRate,omitempty"`
	LaborMonthlyRate float64 `yaml:"laborMonthlyRate,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// ListenAddress returns the configured listen address or the default.
func (c *Configuration) ListenAddress() string {
	if c.Server.Address != "" {
		return c.Server.Address
	}
	return constants.DefaultServerAddress
}

// ReadTimeout returns the configured HTTP read timeout or the default.
func (c *Configuration) ReadTimeout() time.Duration {
	if c.Server.ReadTimeout > 0 {
		return c.Server.ReadTimeout
	}
	return constants.DefaultReadTimeout
}

// WriteTimeout returns the configured HTTP write timeout or the default.
func (c *Configuration) WriteTimeout() time.Duration {
	if c.Server.WriteTimeout > 0 {
		return c.Server.WriteTimeout
	}
	return constants.DefaultWriteTimeout
}

// SeriesConfig maps the provider section onto the time-series client
// configuration. Empty fields fall back to the client defaults.
func (c *Configuration) SeriesConfig() series.Config {
	return series.Config{
		BaseURL:   c.Provider.BaseURL,
		Timeout:   c.Provider.FetchTimeout,
		LatestTTL: c.Provider.LatestCacheTTL,
	}
}

// RateTable builds the interest rate table, keeping statutory defaults for
// rates left unset.
func (c *Configuration) RateTable() interest.RateTable {
	rates := interest.DefaultRateTable()
	if c.Interest.CivilMonthlyRate > 0 {
		rates.CivilMonthly = decimal.NewFromFloat(c.Interest.CivilMonthlyRate)
	}
	if c.Interest.LaborMonthlyRate > 0 {
		rates.LaborMonthly = decimal.NewFromFloat(c.Interest.LaborMonthlyRate)
	}
	return rates
}

// FallbackOverrides parses the fallbackRates section into catalog overrides.
// Unknown index codes and non-positive rates are configuration errors.
func (c *Configuration) FallbackOverrides() (map[indices.Code]decimal.Decimal, error) {
	if len(c.FallbackRates) == 0 {
		return nil, nil
	}
	overrides := make(map[indices.Code]decimal.Decimal, len(c.FallbackRates))
	for key, rate := range c.FallbackRates {
		code, err := indices.ParseCode(key)
		if err != nil {
			return nil, fmt.Errorf("fallbackRates: %s", err)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("fallbackRates: rate for %s must be positive, got %v", key, rate)
		}
		overrides[code] = decimal.NewFromFloat(rate)
	}
	return overrides, nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("logging.level %q not recognized, defaulting to info", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		warnings = append(warnings, fmt.Sprintf("logging.format %q not recognized, defaulting to json", c.Logging.Format))
	}

	if c.Server.ReadTimeout < 0 {
		warnings = append(warnings, "server.readTimeout is negative, using default")
	}
	if c.Server.WriteTimeout < 0 {
		warnings = append(warnings, "server.writeTimeout is negative, using default")
	}
	if c.Provider.FetchTimeout < 0 {
		warnings = append(warnings, "provider.fetchTimeout is negative, using default")
	}
	if c.Interest.CivilMonthlyRate < 0 {
		warnings = append(warnings, "interest.civilMonthlyRate is negative, keeping statutory default")
	}
	if c.Interest.LaborMonthlyRate < 0 {
		warnings = append(warnings, "interest.laborMonthlyRate is negative, keeping statutory default")
	}

	return warnings
}
