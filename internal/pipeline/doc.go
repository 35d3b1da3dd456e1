// Package pipeline schedules conversion cycles.
//
// A cycle discovers candidates under the configured directory, hands them
// to the engine strictly one at a time, largest first, and collects every
// result in a fresh report.Reporter. RunOnce runs a single cycle; Loop
// repeats cycles at the configured interval until its context is
// cancelled, optionally waking early when the watched tree changes.
//
// Observers see cycle and file events as they happen. The status server
// and the progress logger are both observers.
package pipeline
