package config

import (
	"errors"
	"fmt"

	"vodforge/internal/rendition"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateQueue() error {
	if c.Queue.PollInterval <= 0 {
		return errors.New("queue.poll_interval must be positive")
	}
	if c.Queue.LeaseTimeout <= 0 {
		return errors.New("queue.lease_timeout must be positive")
	}
	if c.Queue.LeaseRenewInterval <= 0 {
		return errors.New("queue.lease_renew_interval must be positive")
	}
	if c.Queue.LeaseRenewInterval >= c.Queue.LeaseTimeout {
		return fmt.Errorf("queue.lease_renew_interval (%ds) must be shorter than queue.lease_timeout (%ds)", c.Queue.LeaseRenewInterval, c.Queue.LeaseTimeout)
	}
	if c.Queue.ErrorRetryInterval <= 0 {
		return errors.New("queue.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be at least 1")
	}
	if c.Worker.LockTimeout <= 0 {
		return errors.New("worker.lock_timeout must be positive")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if _, err := rendition.ParseList(c.Encoding.Variants); err != nil {
		return fmt.Errorf("encoding.variants: %w", err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendS3:
		if c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint must be set for the s3 backend (or set S3_ENDPOINT)")
		}
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set for the s3 backend (or set BUCKET_NAME)")
		}
		if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
			return errors.New("storage.access_key and storage.secret_key must be set together")
		}
	case StorageBackendFilesystem:
		if c.Storage.FilesystemRoot == "" {
			return errors.New("storage.filesystem_root must be set for the filesystem backend")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want %q or %q)", c.Storage.Backend, StorageBackendS3, StorageBackendFilesystem)
	}
	return nil
}

func (c *Config) validateTracker() error {
	if !c.Tracker.Enabled {
		return nil
	}
	if c.Tracker.DB < 0 {
		return errors.New("tracker.db must not be negative")
	}
	if c.Tracker.TerminalTTL < 0 {
		return errors.New("tracker.terminal_ttl must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
