// Package runner supervises the external tools shelfd shells out to:
// HandBrakeCLI, yt-dlp, monolith, and plain HTTP fetchers. It streams their
// output line-by-line for progress parsing and guarantees bounded-time
// termination on cancel.
package runner
