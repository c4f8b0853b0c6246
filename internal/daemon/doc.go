// Package daemon wires the state store, job ledger, worker orchestrator,
// podcast registry, and disc monitor into one long-running process guarded
// by an instance lock.
package daemon
