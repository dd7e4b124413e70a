// SPDX-License-Identifier: MPL-2.0

// Package config handles tool configuration using Viper with TOML as the file format.
//
// Configuration is loaded from ~/.config/imagewright/config.toml (or XDG equivalent
// on Linux, ~/Library/Application Support/imagewright/config.toml on macOS,
// %APPDATA%\imagewright\config.toml on Windows), with IMAGEWRIGHT_* environment
// variables taking precedence over file values. The package provides type-safe
// access to GitHub API credentials, version-resolution tuning, and log settings.
//
// This is the configuration of the tool itself; the image configuration that
// describes bases, features, and builds lives in pkg/wrightfile.
package config
