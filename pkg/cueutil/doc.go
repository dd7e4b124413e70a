// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates decoded configuration values against embedded
// CUE schemas.
//
// Configuration files are TOML on disk. Loaders decode them with go-toml
// and hand the decoded value here, where validation follows a 3-step flow:
//
//  1. Compile the embedded schema
//  2. Encode the decoded Go value and unify it with the schema
//  3. Validate the unified value
//
// # Usage
//
//	//go:embed wrightfile_schema.cue
//	var schemaBytes []byte
//
//	var raw map[string]any
//	if err := toml.Unmarshal(data, &raw); err != nil {
//	    return nil, err
//	}
//	if err := cueutil.Validate(schemaBytes, "#Wrightfile", raw,
//	    cueutil.WithFilename("imagewright.toml"),
//	); err != nil {
//	    return nil, err  // Error includes the CUE path for debugging
//	}
package cueutil
