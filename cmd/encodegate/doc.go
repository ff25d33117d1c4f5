// Command encodegate is the operator CLI. It validates job requests offline,
// provisions the worker image, cleans up stale worker containers, reports
// engine health and can run the daemon in the foreground.
package main
