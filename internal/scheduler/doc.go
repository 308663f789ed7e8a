// Package scheduler decides when each configured backup job is due and runs
// it.
//
// Every job has a State (waiting for its time, waiting for mount paths,
// running or failed). Pure functions derive a job's next backup, next
// reminder and next tooltip refresh from its settings, its state and the
// current time. The Scheduler aggregates those over all jobs, gates runs on
// the mount table and records results. It is owned by a single control
// goroutine; other goroutines read the View it publishes.
package scheduler
