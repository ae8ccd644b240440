package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vodforge/internal/rendition"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Queue contains configuration for the durable job queue and its leases.
type Queue struct {
	DBPath             string `toml:"db_path"`
	PollInterval       int    `toml:"poll_interval"`
	LeaseTimeout       int    `toml:"lease_timeout"`
	LeaseRenewInterval int    `toml:"lease_renew_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
}

// Worker contains configuration for job processing slots.
type Worker struct {
	Concurrency int `toml:"concurrency"`
	LockTimeout int `toml:"lock_timeout"`
}

// Encoding contains configuration for rendition encodes.
type Encoding struct {
	FFmpegBinary string   `toml:"ffmpeg_binary"`
	MaxParallel  int      `toml:"max_parallel"`
	Variants     []string `toml:"variants"`
}

// Storage contains configuration for the object store results are published to.
type Storage struct {
	Backend           string `toml:"backend"`
	Endpoint          string `toml:"endpoint"`
	Bucket            string `toml:"bucket"`
	Region            string `toml:"region"`
	AccessKey         string `toml:"access_key"`
	SecretKey         string `toml:"secret_key"`
	UseSSL            bool   `toml:"use_ssl"`
	Prefix            string `toml:"prefix"`
	PublicBaseURL     string `toml:"public_base_url"`
	FilesystemRoot    string `toml:"filesystem_root"`
	UploadConcurrency int    `toml:"upload_concurrency"`
}

// Tracker contains configuration for the Redis job status mirror.
type Tracker struct {
	Enabled     bool   `toml:"enabled"`
	RedisAddr   string `toml:"redis_addr"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	KeyPrefix   string `toml:"key_prefix"`
	Channel     string `toml:"channel"`
	TerminalTTL int    `toml:"terminal_ttl"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vodforge.
//
// Configuration sections by subsystem:
//   - Paths: work directory (queue database, job output) and logs
//   - Queue: polling and lease timing
//   - Worker: concurrent job slots
//   - Encoding: ffmpeg binary, per-job encode slots, rendition ladder
//   - Storage: S3/MinIO or filesystem publish target
//   - Tracker: optional Redis status mirror
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Queue    Queue    `toml:"queue"`
	Worker   Worker   `toml:"worker"`
	Encoding Encoding `toml:"encoding"`
	Storage  Storage  `toml:"storage"`
	Tracker  Tracker  `toml:"tracker"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vodforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a worker writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.OutputDir(), filepath.Dir(c.Queue.DBPath)}
	if c.Paths.LogDir != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	if c.Storage.Backend == StorageBackendFilesystem {
		dirs = append(dirs, c.Storage.FilesystemRoot)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OutputDir is the parent of every job's local output root.
func (c *Config) OutputDir() string {
	return filepath.Join(c.Paths.WorkDir, "output")
}

// JobOutputRoot derives the local output root for a job.
func (c *Config) JobOutputRoot(jobID string) string {
	return filepath.Join(c.OutputDir(), jobID)
}

// RemotePrefix derives the object key prefix for a job.
func (c *Config) RemotePrefix(jobID string) string {
	if c.Storage.Prefix == "" {
		return jobID
	}
	return c.Storage.Prefix + "/" + jobID
}

// Renditions returns the parsed default rendition ladder. Validate has already
// rejected malformed entries, so errors here indicate a config that skipped Load.
func (c *Config) Renditions() ([]rendition.Spec, error) {
	return rendition.ParseList(c.Encoding.Variants)
}

// PollInterval is the idle wait between queue polls.
func (c *Config) PollInterval() time.Duration {
	return seconds(c.Queue.PollInterval)
}

// LeaseTimeout is how long a claim stays valid without renewal.
func (c *Config) LeaseTimeout() time.Duration {
	return seconds(c.Queue.LeaseTimeout)
}

// LeaseRenewInterval is how often an active job renews its lease.
func (c *Config) LeaseRenewInterval() time.Duration {
	return seconds(c.Queue.LeaseRenewInterval)
}

// ErrorRetryInterval is the backoff after a queue access error.
func (c *Config) ErrorRetryInterval() time.Duration {
	return seconds(c.Queue.ErrorRetryInterval)
}

// LockTimeout bounds the wait for a job output directory lock.
func (c *Config) LockTimeout() time.Duration {
	return seconds(c.Worker.LockTimeout)
}

// TerminalTTL is how long tracker entries for finished jobs are retained.
func (c *Config) TerminalTTL() time.Duration {
	return seconds(c.Tracker.TerminalTTL)
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
