// Package workflow drives claimed jobs through the worker state machine.
//
// The Manager runs one loop per worker slot. Each loop reclaims expired
// leases, claims the oldest queued job and advances it through
// claimed → transcoding → manifesting → publishing → completed, recording
// every stage in the queue and reporting it to an optional status sink. Any
// stage error fails the job with a message naming the job and stage; nothing
// is retried automatically.
//
// A heartbeat goroutine renews the job's lease while it runs so other
// workers can reclaim it only if this process dies. Job processing is
// detached from shutdown: Stop lets the in-flight job finish before the loops
// exit.
package workflow
