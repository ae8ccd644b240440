package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vodforge/internal/config"
	"vodforge/internal/encoding"
	"vodforge/internal/logging"
	"vodforge/internal/queue"
)

// Publisher mirrors a finished output tree to storage and returns the public
// locator of its master playlist.
type Publisher interface {
	Publish(ctx context.Context, localRoot, remotePrefix string) (string, error)
}

// StatusSink receives every job status change. Report errors are logged and
// otherwise ignored.
type StatusSink interface {
	Report(ctx context.Context, info queue.StateInfo) error
}

// Dependencies are the capabilities the manager drives.
type Dependencies struct {
	Encoder   encoding.Encoder
	Publisher Publisher
	// Status is optional.
	Status StatusSink
}

// Manager coordinates queue processing for one worker process.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	deps   Dependencies
	logger *slog.Logger
	owner  string

	pollInterval  time.Duration
	retryInterval time.Duration
	lockTimeout   time.Duration

	leases *LeaseKeeper

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastJob   *queue.StateInfo
	processed int64
	active    map[string]queue.Stage
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithOwner overrides the lease owner id, which defaults to a random UUID.
func WithOwner(owner string) ManagerOption {
	return func(m *Manager) {
		if owner != "" {
			m.owner = owner
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, deps Dependencies, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		deps:          deps,
		owner:         uuid.NewString(),
		pollInterval:  cfg.PollInterval(),
		retryInterval: cfg.ErrorRetryInterval(),
		lockTimeout:   cfg.LockTimeout(),
		active:        make(map[string]queue.Stage),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.With(
		logging.String(logging.FieldComponent, "workflow"),
		logging.String(logging.FieldWorker, m.owner),
	)
	m.leases = NewLeaseKeeper(store, m.logger, cfg.LeaseRenewInterval(), cfg.LeaseTimeout())
	return m
}

// Owner returns the lease owner id this manager claims jobs under.
func (m *Manager) Owner() string {
	return m.owner
}
