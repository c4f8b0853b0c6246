// Package workers runs the background loops that drain the job queue: one
// loop per category plus a scheduled podcast feed sweep. Loops claim jobs
// through the ledger, execute them with category-specific executors, and
// relay progress at a bounded rate.
package workers
