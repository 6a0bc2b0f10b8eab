// Package supervisor drives the per-file state machine: stability checks,
// the single-active-file discipline, external command invocation, and the
// retry/give-up policy.
//
// ProcessOne and ProcessAll are safe to call concurrently from the poll loop
// and the filesystem-event callback. Callers that find another file mid-
// processing back off cooperatively and rely on the next pass; nothing
// blocks on the active slot.
package supervisor
