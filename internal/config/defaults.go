package config

import "vodforge/internal/rendition"

const (
	defaultConfigPath         = "~/.config/vodforge/config.toml"
	defaultWorkDir            = "~/.local/share/vodforge"
	defaultQueueDBName        = "queue.db"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultPollInterval       = 5
	defaultLeaseTimeout       = 120
	defaultLeaseRenewInterval = 15
	defaultErrorRetryInterval = 10
	defaultWorkerConcurrency  = 1
	defaultLockTimeout        = 30
	defaultFFmpegBinary       = "ffmpeg"
	defaultMaxParallel        = 1
	defaultStorageEndpoint    = "localhost:9000"
	defaultStorageBucket      = "stream-bucket"
	defaultStorageRegion      = "us-east-1"
	defaultStoragePrefix      = "videos"
	defaultUploadConcurrency  = 4
	defaultTrackerRedisAddr   = "localhost:6379"
	defaultTrackerKeyPrefix   = "vodforge:job:"
	defaultTrackerChannel     = "vodforge:events"
	defaultTrackerTerminalTTL = 24 * 60 * 60
	defaultPublishedDirName   = "published"
)

// Storage backends.
const (
	StorageBackendS3         = "s3"
	StorageBackendFilesystem = "filesystem"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	variants := make([]string, 0, 2)
	for _, spec := range rendition.Defaults() {
		variants = append(variants, spec.String())
	}
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
		},
		Queue: Queue{
			PollInterval:       defaultPollInterval,
			LeaseTimeout:       defaultLeaseTimeout,
			LeaseRenewInterval: defaultLeaseRenewInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Worker: Worker{
			Concurrency: defaultWorkerConcurrency,
			LockTimeout: defaultLockTimeout,
		},
		Encoding: Encoding{
			FFmpegBinary: defaultFFmpegBinary,
			MaxParallel:  defaultMaxParallel,
			Variants:     variants,
		},
		Storage: Storage{
			Backend:           StorageBackendS3,
			Prefix:            defaultStoragePrefix,
			UploadConcurrency: defaultUploadConcurrency,
		},
		Tracker: Tracker{
			KeyPrefix:   defaultTrackerKeyPrefix,
			Channel:     defaultTrackerChannel,
			TerminalTTL: defaultTrackerTerminalTTL,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
