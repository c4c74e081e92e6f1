// Package record owns the lifecycle of run records: creation, terminal
// transitions, the append-only communication log and the rolling workflow
// statistics. All writes for a single run happen on the goroutine driving
// that run; the recorder only serializes the cross-run stats updates.
package record
