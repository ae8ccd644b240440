// Package tracker mirrors job status into Redis so pollers can read progress
// without opening the queue database.
//
// Each job is a hash at {key_prefix}{id} holding state, stage, error, locator,
// attempts and updated_at. Terminal hashes expire after terminal_ttl. Every
// update is also published as a JSON event on the configured channel.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"vodforge/internal/config"
	"vodforge/internal/logging"
	"vodforge/internal/queue"
)

// Tracker receives job status changes.
type Tracker interface {
	Report(ctx context.Context, info queue.StateInfo) error
	// Forget drops the mirrored status of a deleted job.
	Forget(ctx context.Context, id string) error
	Close() error
}

// StateReader reads the authoritative status of a job.
type StateReader interface {
	State(ctx context.Context, id string) (queue.StateInfo, error)
}

// Sync brings the mirror in line with the queue for ids touched outside the
// worker. Jobs that still exist are reported; deleted jobs are forgotten.
func Sync(ctx context.Context, t Tracker, store StateReader, ids ...string) error {
	var errs []error
	for _, id := range ids {
		info, err := store.State(ctx, id)
		switch {
		case errors.Is(err, queue.ErrNotFound):
			err = t.Forget(ctx, id)
		case err == nil:
			err = t.Report(ctx, info)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Event is the message published for every status change.
type Event struct {
	Type     string `json:"type"`
	JobID    string `json:"job_id"`
	State    string `json:"state"`
	Stage    string `json:"stage,omitempty"`
	Error    string `json:"error,omitempty"`
	Locator  string `json:"locator,omitempty"`
	Attempts int    `json:"attempts"`
	At       string `json:"at"`
}

// Snapshot is the mirrored status of one job.
type Snapshot struct {
	ID        string
	State     queue.State
	Stage     queue.Stage
	Error     string
	Locator   string
	Attempts  int
	UpdatedAt time.Time
}

// Options configures the Redis tracker.
type Options struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	Channel     string
	TerminalTTL time.Duration
}

// Redis is a Tracker backed by a Redis server.
type Redis struct {
	client  *redis.Client
	prefix  string
	channel string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New returns the tracker selected by configuration: a Redis tracker when
// tracker.enabled is set, otherwise a no-op.
func New(cfg *config.Config, logger *slog.Logger) (Tracker, error) {
	if cfg == nil || !cfg.Tracker.Enabled {
		return Noop{}, nil
	}
	return NewRedis(OptionsFromConfig(cfg), logger)
}

// OptionsFromConfig maps the tracker section onto Redis options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:        cfg.Tracker.RedisAddr,
		Password:    cfg.Tracker.Password,
		DB:          cfg.Tracker.DB,
		KeyPrefix:   cfg.Tracker.KeyPrefix,
		Channel:     cfg.Tracker.Channel,
		TerminalTTL: cfg.TerminalTTL(),
	}
}

// NewRedis builds a Redis tracker. It does not contact the server.
func NewRedis(opts Options, logger *slog.Logger) (*Redis, error) {
	if opts.Addr == "" {
		return nil, errors.New("tracker requires a redis address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:             opts.Addr,
		Password:         opts.Password,
		DB:               opts.DB,
		DisableIndentity: true,
		DialTimeout:      5 * time.Second,
		ReadTimeout:      3 * time.Second,
		WriteTimeout:     3 * time.Second,
	})
	return &Redis{
		client:  client,
		prefix:  opts.KeyPrefix,
		channel: opts.Channel,
		ttl:     opts.TerminalTTL,
		logger:  logging.NewComponentLogger(logger, "tracker"),
		now:     time.Now,
	}, nil
}

// Key returns the hash key for a job.
func (r *Redis) Key(id string) string {
	return r.prefix + id
}

// Report writes the job hash and publishes an event in one pipeline.
func (r *Redis) Report(ctx context.Context, info queue.StateInfo) error {
	at := r.now().UTC().Format(time.RFC3339Nano)
	event := Event{
		Type:     eventType(info),
		JobID:    info.ID,
		State:    string(info.State),
		Stage:    string(info.Stage),
		Error:    info.Error,
		Locator:  info.Locator,
		Attempts: info.Attempts,
		At:       at,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode tracker event: %w", err)
	}

	key := r.Key(info.ID)
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"state", string(info.State),
			"stage", string(info.Stage),
			"error", info.Error,
			"locator", info.Locator,
			"attempts", strconv.Itoa(info.Attempts),
			"updated_at", at,
		)
		if info.State.IsTerminal() && r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		} else {
			pipe.Persist(ctx, key)
		}
		if r.channel != "" {
			pipe.Publish(ctx, r.channel, payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror job %s: %w", info.ID, err)
	}
	r.logger.Debug("job status mirrored",
		logging.String(logging.FieldJobID, info.ID),
		logging.String(logging.FieldEventType, event.Type),
		logging.String("state", event.State),
	)
	return nil
}

// Lookup reads the mirrored status of id. The boolean is false when no hash
// exists.
func (r *Redis) Lookup(ctx context.Context, id string) (Snapshot, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.Key(id)).Result()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("lookup job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return Snapshot{}, false, nil
	}
	snap := Snapshot{
		ID:      id,
		State:   queue.State(fields["state"]),
		Stage:   queue.Stage(fields["stage"]),
		Error:   fields["error"],
		Locator: fields["locator"],
	}
	if attempts, err := strconv.Atoi(fields["attempts"]); err == nil {
		snap.Attempts = attempts
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		snap.UpdatedAt = ts
	}
	return snap, true, nil
}

// Forget deletes the mirrored status of id.
func (r *Redis) Forget(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.Key(id)).Err(); err != nil {
		return fmt.Errorf("forget job %s: %w", id, err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func eventType(info queue.StateInfo) string {
	switch info.State {
	case queue.StateCompleted:
		return "completed"
	case queue.StateFailed:
		return "failed"
	case queue.StateQueued:
		return "queued"
	default:
		return "progress"
	}
}

// Noop discards every report.
type Noop struct{}

func (Noop) Report(context.Context, queue.StateInfo) error { return nil }

func (Noop) Forget(context.Context, string) error { return nil }

func (Noop) Close() error { return nil }
