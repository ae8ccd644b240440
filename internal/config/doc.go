// Package config loads, normalizes, and validates vodforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// S3_ENDPOINT, BUCKET_NAME and AWS_ACCESS_KEY_ID. The Config type centralizes
// every knob the worker and CLI need so queue timing, the rendition ladder and
// the publish target are resolved in one pass.
package config
