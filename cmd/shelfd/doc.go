// Command shelfd is the media library daemon and its control CLI. The run
// subcommand starts the long-lived process; every other subcommand operates
// on the shared SQLite database directly.
package main
