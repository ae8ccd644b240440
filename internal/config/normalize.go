package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	c.normalizeEncoding()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeTracker()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueue() error {
	c.Queue.DBPath = strings.TrimSpace(c.Queue.DBPath)
	if c.Queue.DBPath == "" {
		c.Queue.DBPath = filepath.Join(c.Paths.WorkDir, defaultQueueDBName)
		return nil
	}
	var err error
	if c.Queue.DBPath, err = expandPath(c.Queue.DBPath); err != nil {
		return fmt.Errorf("queue.db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	c.Encoding.FFmpegBinary = strings.TrimSpace(c.Encoding.FFmpegBinary)
	if c.Encoding.FFmpegBinary == "" {
		c.Encoding.FFmpegBinary = defaultFFmpegBinary
	}
	variants := c.Encoding.Variants[:0]
	for _, v := range c.Encoding.Variants {
		if v = strings.TrimSpace(v); v != "" {
			variants = append(variants, v)
		}
	}
	c.Encoding.Variants = variants
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendS3
	}
	withEnv(&c.Storage.Endpoint, defaultStorageEndpoint, "S3_ENDPOINT")
	withEnv(&c.Storage.Bucket, defaultStorageBucket, "BUCKET_NAME")
	withEnv(&c.Storage.Region, defaultStorageRegion, "AWS_REGION")
	withEnv(&c.Storage.AccessKey, "", "AWS_ACCESS_KEY_ID", "MINIO_ROOT_USER")
	withEnv(&c.Storage.SecretKey, "", "AWS_SECRET_ACCESS_KEY", "MINIO_ROOT_PASSWORD")

	// minio-go wants a bare host:port; keep the scheme as the use_ssl hint.
	switch {
	case strings.HasPrefix(c.Storage.Endpoint, "https://"):
		c.Storage.Endpoint = strings.TrimPrefix(c.Storage.Endpoint, "https://")
		c.Storage.UseSSL = true
	case strings.HasPrefix(c.Storage.Endpoint, "http://"):
		c.Storage.Endpoint = strings.TrimPrefix(c.Storage.Endpoint, "http://")
	}
	c.Storage.Endpoint = strings.TrimRight(c.Storage.Endpoint, "/")
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.UploadConcurrency <= 0 {
		c.Storage.UploadConcurrency = defaultUploadConcurrency
	}

	root := strings.TrimSpace(c.Storage.FilesystemRoot)
	if root == "" {
		root = filepath.Join(c.Paths.WorkDir, defaultPublishedDirName)
	}
	var err error
	if c.Storage.FilesystemRoot, err = expandPath(root); err != nil {
		return fmt.Errorf("storage.filesystem_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracker() {
	withEnv(&c.Tracker.RedisAddr, defaultTrackerRedisAddr, "REDIS_ADDR")
	if strings.TrimSpace(c.Tracker.KeyPrefix) == "" {
		c.Tracker.KeyPrefix = defaultTrackerKeyPrefix
	}
	if strings.TrimSpace(c.Tracker.Channel) == "" {
		c.Tracker.Channel = defaultTrackerChannel
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// withEnv keeps an explicit value, otherwise takes the first non-empty
// environment variable, otherwise the fallback.
func withEnv(field *string, fallback string, keys ...string) {
	if value := strings.TrimSpace(*field); value != "" {
		*field = value
		return
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*field = strings.TrimSpace(value)
			return
		}
	}
	*field = fallback
}
