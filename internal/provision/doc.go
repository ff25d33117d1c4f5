// Package provision guarantees that a worker image is present on the engine
// before a job launches.
//
// EnsureImage normalizes the name, asks the engine for its local images and
// pulls only when the image is missing. Presence is checked fresh on every
// call. Concurrent callers asking for the same image inside one process share
// a single pull through an in-flight registry; an optional Lease extends that
// guarantee across replicas that share an engine.
//
// No timeout or retry is applied here. Callers bound the work through ctx.
package provision
