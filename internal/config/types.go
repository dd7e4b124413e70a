// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// LogLevelDebug enables debug-level logging.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo enables info-level logging.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn enables warn-level logging.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError enables error-level logging.
	LogLevelError LogLevel = "error"

	// DefaultAPIBaseURL is the GitHub REST endpoint used when no override is configured.
	DefaultAPIBaseURL APIBaseURL = "https://api.github.com"
	// DefaultWorkers bounds concurrent version resolutions.
	DefaultWorkers WorkerCount = 8
	// DefaultRetries is how many times a retryable resolution is re-attempted.
	DefaultRetries RetryCount = 2
	// DefaultRetryBackoff is the base delay between resolution retries.
	DefaultRetryBackoff = time.Second

	// maxWorkers caps the resolution worker pool; more mostly hammers registries.
	maxWorkers WorkerCount = 64
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidAPIBaseURL is returned when an APIBaseURL value is not an absolute http(s) URL.
	ErrInvalidAPIBaseURL = errors.New("invalid API base URL")
	// ErrInvalidWorkerCount is returned when a WorkerCount value is out of range.
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	// ErrInvalidRetryCount is returned when a RetryCount value is negative.
	ErrInvalidRetryCount = errors.New("invalid retry count")
	// ErrInvalidRetryBackoff is returned when a retry backoff duration is negative.
	ErrInvalidRetryBackoff = errors.New("invalid retry backoff")
	// ErrInvalidGitHubConfig is the sentinel error wrapped by InvalidGitHubConfigError.
	ErrInvalidGitHubConfig = errors.New("invalid github config")
	// ErrInvalidResolveConfig is the sentinel error wrapped by InvalidResolveConfigError.
	ErrInvalidResolveConfig = errors.New("invalid resolve config")
	// ErrInvalidLogConfig is the sentinel error wrapped by InvalidLogConfigError.
	ErrInvalidLogConfig = errors.New("invalid log config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel specifies the minimum severity emitted by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// Token is a GitHub access token. Its String method redacts the value so
	// tokens never leak through logs or %s/%v formatting.
	Token string

	// APIBaseURL is the base URL of a GitHub-compatible REST API.
	// The zero value ("") means "use the default endpoint".
	APIBaseURL string

	// InvalidAPIBaseURLError is returned when an APIBaseURL value is not an
	// absolute http(s) URL. It wraps ErrInvalidAPIBaseURL for errors.Is().
	InvalidAPIBaseURLError struct {
		Value APIBaseURL
	}

	// WorkerCount bounds the version-resolution worker pool.
	WorkerCount int

	// InvalidWorkerCountError is returned when a WorkerCount value is out of
	// range. It wraps ErrInvalidWorkerCount for errors.Is() compatibility.
	InvalidWorkerCountError struct {
		Value WorkerCount
	}

	// RetryCount is how many times a retryable resolution is re-attempted
	// after the initial try.
	RetryCount int

	// InvalidRetryCountError is returned when a RetryCount value is negative.
	// It wraps ErrInvalidRetryCount for errors.Is() compatibility.
	InvalidRetryCountError struct {
		Value RetryCount
	}

	// InvalidRetryBackoffError is returned when a retry backoff duration is
	// negative. It wraps ErrInvalidRetryBackoff for errors.Is() compatibility.
	InvalidRetryBackoffError struct {
		Value time.Duration
	}

	// InvalidGitHubConfigError is returned when a GitHubConfig has invalid fields.
	// It wraps ErrInvalidGitHubConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidGitHubConfigError struct {
		FieldErrors []error
	}

	// InvalidResolveConfigError is returned when a ResolveConfig has invalid fields.
	// It wraps ErrInvalidResolveConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidResolveConfigError struct {
		FieldErrors []error
	}

	// InvalidLogConfigError is returned when a LogConfig has invalid fields.
	// It wraps ErrInvalidLogConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidLogConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the tool configuration.
	Config struct {
		// GitHub configures access to the GitHub REST API.
		GitHub GitHubConfig `json:"github" mapstructure:"github"`
		// Resolve configures the version-resolution pass.
		Resolve ResolveConfig `json:"resolve" mapstructure:"resolve"`
		// Log configures CLI logging.
		Log LogConfig `json:"log" mapstructure:"log"`
	}

	// GitHubConfig configures access to the GitHub REST API.
	GitHubConfig struct {
		// Token authenticates tag and branch listings (optional).
		Token Token `json:"token" mapstructure:"token"`
		// APIURL overrides the API endpoint, e.g. for GitHub Enterprise.
		APIURL APIBaseURL `json:"api-url" mapstructure:"api-url"`
	}

	// ResolveConfig configures the version-resolution pass.
	ResolveConfig struct {
		// Workers bounds concurrent resolutions.
		Workers WorkerCount `json:"workers" mapstructure:"workers"`
		// Retries is how many times a retryable failure is re-attempted.
		Retries RetryCount `json:"retries" mapstructure:"retries"`
		// RetryBackoff is the base delay between attempts, doubled each retry.
		RetryBackoff time.Duration `json:"retry-backoff" mapstructure:"retry-backoff"`
	}

	// LogConfig configures CLI logging.
	LogConfig struct {
		// Level sets the minimum severity ("debug", "info", "warn", "error").
		Level LogLevel `json:"level" mapstructure:"level"`
	}
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String redacts the token value. Use Reveal to access the secret.
func (t Token) String() string {
	if t == "" {
		return ""
	}
	return "[redacted]"
}

// Reveal returns the raw token value.
func (t Token) Reveal() string { return string(t) }

// IsSet reports whether a token is configured.
func (t Token) IsSet() bool { return t != "" }

// String returns the string representation of the APIBaseURL.
func (u APIBaseURL) String() string { return string(u) }

// IsValid returns whether the APIBaseURL is an absolute http(s) URL.
// The zero value ("") is valid and means "use the default endpoint".
func (u APIBaseURL) IsValid() (bool, []error) {
	if u == "" {
		return true, nil
	}
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false, []error{&InvalidAPIBaseURLError{Value: u}}
	}
	return true, nil
}

// Error implements the error interface for InvalidAPIBaseURLError.
func (e *InvalidAPIBaseURLError) Error() string {
	return fmt.Sprintf("invalid API base URL %q: must be an absolute http(s) URL", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidAPIBaseURLError) Unwrap() error { return ErrInvalidAPIBaseURL }

// IsValid returns whether the WorkerCount is within range.
func (w WorkerCount) IsValid() (bool, []error) {
	if w < 1 || w > maxWorkers {
		return false, []error{&InvalidWorkerCountError{Value: w}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWorkerCountError.
func (e *InvalidWorkerCountError) Error() string {
	return fmt.Sprintf("invalid worker count %d: must be between 1 and %d", e.Value, maxWorkers)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidWorkerCountError) Unwrap() error { return ErrInvalidWorkerCount }

// IsValid returns whether the RetryCount is non-negative.
func (r RetryCount) IsValid() (bool, []error) {
	if r < 0 {
		return false, []error{&InvalidRetryCountError{Value: r}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRetryCountError.
func (e *InvalidRetryCountError) Error() string {
	return fmt.Sprintf("invalid retry count %d: must be non-negative", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidRetryCountError) Unwrap() error { return ErrInvalidRetryCount }

// Error implements the error interface for InvalidRetryBackoffError.
func (e *InvalidRetryBackoffError) Error() string {
	return fmt.Sprintf("invalid retry backoff %s: must be non-negative", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidRetryBackoffError) Unwrap() error { return ErrInvalidRetryBackoff }

// IsValid returns whether the GitHubConfig has valid fields.
// It delegates to APIURL.IsValid(); tokens need no validation.
func (c GitHubConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.APIURL.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidGitHubConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidGitHubConfigError.
func (e *InvalidGitHubConfigError) Error() string {
	return fmt.Sprintf("invalid github config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidGitHubConfig for errors.Is() compatibility.
func (e *InvalidGitHubConfigError) Unwrap() error { return ErrInvalidGitHubConfig }

// IsValid returns whether the ResolveConfig has valid fields.
// It delegates to Workers.IsValid() and Retries.IsValid(), and checks the
// backoff sign directly.
func (c ResolveConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Workers.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Retries.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, &InvalidRetryBackoffError{Value: c.RetryBackoff})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidResolveConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidResolveConfigError.
func (e *InvalidResolveConfigError) Error() string {
	return fmt.Sprintf("invalid resolve config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidResolveConfig for errors.Is() compatibility.
func (e *InvalidResolveConfigError) Unwrap() error { return ErrInvalidResolveConfig }

// IsValid returns whether the LogConfig has valid fields.
// It delegates to Level.IsValid().
func (c LogConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidLogConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidLogConfigError.
func (e *InvalidLogConfigError) Error() string {
	return fmt.Sprintf("invalid log config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidLogConfig for errors.Is() compatibility.
func (e *InvalidLogConfigError) Unwrap() error { return ErrInvalidLogConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to GitHub.IsValid(), Resolve.IsValid(), and Log.IsValid().
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.GitHub.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Resolve.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Token:  "", // Unauthenticated; GH_TOKEN/GITHUB_TOKEN still apply at the CLI
			APIURL: DefaultAPIBaseURL,
		},
		Resolve: ResolveConfig{
			Workers:      DefaultWorkers,
			Retries:      DefaultRetries,
			RetryBackoff: DefaultRetryBackoff,
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}
