// Package events carries resolution progress out of the install engine.
//
// The engine emits one event per observable step: a strategy being attempted,
// skipped, succeeding, or failing, a failed rollback, and the terminal
// all-failed outcome. Consumers decide presentation; the engine never writes
// output itself.
package events

import "time"

// Type identifies what happened.
type Type string

const (
	// TypeStrategyAttempted is emitted before a strategy's action runs.
	TypeStrategyAttempted Type = "strategy_attempted"
	// TypeStrategySkipped is emitted when a precondition rules a strategy out.
	TypeStrategySkipped Type = "strategy_skipped"
	// TypeStrategySucceeded is emitted when a strategy's action completes.
	TypeStrategySucceeded Type = "strategy_succeeded"
	// TypeStrategyFailed is emitted when a strategy's action returns an error.
	TypeStrategyFailed Type = "strategy_failed"
	// TypeRollbackFailed is emitted when undoing a failed action itself fails.
	// It never interrupts the resolution run.
	TypeRollbackFailed Type = "rollback_failed"
	// TypeAllFailed is emitted once when no strategy succeeded.
	TypeAllFailed Type = "all_failed"
	// TypeResolutionDone is emitted once after a strategy succeeded.
	TypeResolutionDone Type = "resolution_done"
)

// Event is a single observable step of a resolution run.
type Event struct {
	Type     Type
	Strategy string
	// Reason carries the skip reason for TypeStrategySkipped.
	Reason string
	// Path carries the install location for success events.
	Path string
	// Err carries the failure for failed/rollback-failed/all-failed events.
	Err error
	At  time.Time
}

// Sink receives events during a resolution run. Implementations must not
// block; the engine calls Emit synchronously between steps.
type Sink interface {
	Emit(Event)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}

// Collector records events in order. It is for tests and single-goroutine
// use; the engine is single-threaded by contract.
type Collector struct {
	Events []Event
}

// Emit implements Sink.
func (c *Collector) Emit(e Event) {
	c.Events = append(c.Events, e)
}

// Types returns the event types in emission order.
func (c *Collector) Types() []Type {
	types := make([]Type, len(c.Events))
	for i, e := range c.Events {
		types[i] = e.Type
	}
	return types
}

// Multi fans events out to each sink in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

// Emit implements Sink.
func (m multiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
