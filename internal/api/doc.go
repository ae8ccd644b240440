// Package api is the submission and status surface shared by the CLI and any
// embedding program.
//
// Service wraps the queue store: Submit validates and enqueues a job (a fresh
// UUID is assigned when no id is given) and reports whether it was accepted
// or collapsed into an existing submission; Status returns the job's state,
// stage, error and public locator. The converters translate queue models into
// DTOs with snake_case JSON tags for `--json` output.
package api
