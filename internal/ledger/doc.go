// Package ledger enforces the job state machine: queued -> running ->
// {done, failed}, with cancellation allowed from queued or running. Claims
// are atomic, terminal states are final, and retries always mint a new job.
package ledger
