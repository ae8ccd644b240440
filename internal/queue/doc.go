// Package queue persists transcoding jobs in SQLite and exposes the claim and
// lease operations workers coordinate through.
//
// Jobs are keyed by a caller-visible ID. Enqueue is idempotent while a job is
// queued or active and re-enqueues terminal jobs. Claim hands out the oldest
// queued job under a time-bounded lease; the holder renews it while working
// and every later transition is fenced on the lease owner, so a job whose
// lease expired and was reclaimed cannot be completed by the stale worker.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
