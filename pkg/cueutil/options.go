// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize is the default maximum size for configuration files
// (5MB). The limit prevents OOM from maliciously large inputs.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	// validateOptions holds configuration for schema validation.
	validateOptions struct {
		concrete bool
		filename string
	}

	// Option configures validation behavior.
	Option func(*validateOptions)
)

// defaultOptions returns the default validation options.
func defaultOptions() validateOptions {
	return validateOptions{
		concrete: true,
		filename: "",
	}
}

// WithConcrete sets whether all values must be concrete after unification.
// Default is true (require concrete values).
//
// Set to false for settings files where fields may be left unset.
func WithConcrete(concrete bool) Option {
	return func(o *validateOptions) {
		o.concrete = concrete
	}
}

// WithFilename sets the filename for error messages.
// This appears in validation output to help users locate issues.
func WithFilename(name string) Option {
	return func(o *validateOptions) {
		o.filename = name
	}
}
