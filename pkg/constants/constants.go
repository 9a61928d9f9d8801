// Package constants provides shared constants for the calculo engine.
package constants

import "time"

// Date layouts used across the engine.
const (
	// DateOnlyLayout is the format expected for calculation period bounds in
	// requests and is also the output date format.
	DateOnlyLayout = "2006-01-02"

	// MonthLayout labels monthly index observations.
	MonthLayout = "2006-01"

	// SGSDateLayout is the date format of the Banco Central SGS API, both in
	// query parameters and in response payloads.
	SGSDateLayout = "02/01/2006"
)

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DaysPerMonth is the commercial month length used for elapsed-time
	// conversion. Forensic accounting practice in this domain counts
	// 30-day months, not calendar months.
	DaysPerMonth = 30

	// MoneyDecimalPlaces is the scale monetary amounts are rounded to at the
	// presentation boundary.
	MoneyDecimalPlaces = 2

	// PercentDecimalPlaces is the display scale for percentage fields.
	PercentDecimalPlaces = 2
)

// Time-series provider defaults
const (
	// DefaultSGSBaseURL is the Banco Central do Brasil SGS endpoint serving
	// the monthly index series.
	DefaultSGSBaseURL = "https://api.bcb.gov.br/dados/serie"

	// DefaultFetchTimeout bounds a single fetch against the SGS API. The
	// engine sits on an interactive request path; a slow source is treated
	// the same as an unreachable one.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultLatestCacheTTL is how long a fetched latest-value observation
	// may be served from the in-process cache.
	DefaultLatestCacheTTL = 15 * time.Minute
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultReadTimeout bounds reading of an incoming request.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout bounds writing of a response.
	DefaultWriteTimeout = 30 * time.Second
)
