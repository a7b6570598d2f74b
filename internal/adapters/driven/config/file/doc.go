// Package file provides TOML-backed settings persistence.
//
// Settings live in a single config.toml under the askdoc config
// directory (~/.askdoc by default). API keys are usually not stored in
// the file; they are picked up from the environment on load, so the
// file on disk can stay free of secrets.
package file
