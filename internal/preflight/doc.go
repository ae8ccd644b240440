// Package preflight provides readiness checks for the binaries, directories
// and services a worker depends on.
//
// The `vodforge worker` command runs RunAll before starting and refuses to
// process jobs when any check fails; `vodforge health` prints the same
// results. Service checks are skipped when their target is not configured.
package preflight
