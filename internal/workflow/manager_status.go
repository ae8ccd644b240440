package workflow

import (
	"context"
	"sort"

	"vodforge/internal/logging"
	"vodforge/internal/queue"
)

// ActiveJob is a job currently held by this manager.
type ActiveJob struct {
	ID    string
	Stage queue.Stage
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool
	Owner      string
	LastError  string
	LastJob    *queue.StateInfo
	Processed  int64
	Active     []ActiveJob
	QueueStats map[queue.State]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:   m.running,
		Owner:     m.owner,
		Processed: m.processed,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		last := *m.lastJob
		summary.LastJob = &last
	}
	for id, stage := range m.active {
		summary.Active = append(summary.Active, ActiveJob{ID: id, Stage: stage})
	}
	m.mu.RUnlock()
	sort.Slice(summary.Active, func(i, j int) bool { return summary.Active[i].ID < summary.Active[j].ID })

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(info queue.StateInfo) {
	m.mu.Lock()
	m.lastJob = &info
	m.processed++
	m.mu.Unlock()
}

func (m *Manager) trackActive(id string, stage queue.Stage) {
	m.mu.Lock()
	m.active[id] = stage
	m.mu.Unlock()
}

func (m *Manager) untrackActive(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
