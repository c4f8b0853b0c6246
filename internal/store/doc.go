// Package store persists shelfd state in an embedded SQLite database: jobs,
// media records, collections, podcasts, and sessions. It owns schema creation
// and forward-only migration, and exposes typed operations that higher layers
// (the job ledger, the catalog, the podcast registry) compose.
package store
