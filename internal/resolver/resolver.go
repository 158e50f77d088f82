// Package resolver runs an ordered chain of install strategies until one
// succeeds.
//
// Each strategy declares a precondition against the probed environment, an
// action, and a rollback for undoing a failed action's partial writes. The
// engine attempts strategies strictly in order, stops at the first success,
// and reports every attempt's outcome. It is single-threaded: one strategy
// runs at a time and the engine owns the destination for the whole run.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openpcli/pcli-setup/internal/events"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/probe"
)

// Strategy is one install method in the fallback chain.
type Strategy interface {
	// Name identifies the strategy in results, events, and logs.
	Name() string
	// Precondition reports whether the action is worth attempting against
	// env, with a human-readable reason when it is not. It must not mutate
	// anything.
	Precondition(env probe.Environment) (ok bool, reason string)
	// Run performs the install and returns the destination directory the
	// module landed in.
	Run(ctx context.Context, env probe.Environment) (path string, err error)
	// Rollback undoes partial writes left by a failed Run. It is called
	// only after Run returned an error; implementations that staged
	// nothing simply return nil.
	Rollback(ctx context.Context) error
}

// StrategyFuncs adapts plain functions to Strategy. A nil PreconditionFunc
// always passes; a nil RollbackFunc does nothing.
type StrategyFuncs struct {
	StrategyName     string
	PreconditionFunc func(env probe.Environment) (bool, string)
	RunFunc          func(ctx context.Context, env probe.Environment) (string, error)
	RollbackFunc     func(ctx context.Context) error
}

// Name implements Strategy.
func (s StrategyFuncs) Name() string {
	return s.StrategyName
}

// Precondition implements Strategy.
func (s StrategyFuncs) Precondition(env probe.Environment) (bool, string) {
	if s.PreconditionFunc == nil {
		return true, ""
	}
	return s.PreconditionFunc(env)
}

// Run implements Strategy.
func (s StrategyFuncs) Run(ctx context.Context, env probe.Environment) (string, error) {
	if s.RunFunc == nil {
		return "", NewError(KindUnknown, s.StrategyName, fmt.Errorf(messages.ResolverNoActionFmt, s.StrategyName))
	}
	return s.RunFunc(ctx, env)
}

// Rollback implements Strategy.
func (s StrategyFuncs) Rollback(ctx context.Context) error {
	if s.RollbackFunc == nil {
		return nil
	}
	return s.RollbackFunc(ctx)
}

// Outcome is the recorded result of one strategy within a run.
type Outcome string

const (
	// OutcomeSucceeded means the strategy's action completed.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed means the action ran and returned an error.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the precondition ruled the strategy out.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNotAttempted means an earlier strategy already succeeded, or
	// the run was canceled first.
	OutcomeNotAttempted Outcome = "not_attempted"
)

// Status is the terminal state of a whole run.
type Status string

const (
	// StatusDone means some strategy succeeded.
	StatusDone Status = "done"
	// StatusAllFailed means every strategy failed or was skipped.
	StatusAllFailed Status = "all_failed"
	// StatusCanceled means the context was canceled between attempts.
	StatusCanceled Status = "canceled"
)

// Attempt records exactly one strategy's outcome. Failed attempts carry the
// typed error; skipped attempts carry a KindPreconditionUnmet error holding
// the reason.
type Attempt struct {
	Strategy string
	Outcome  Outcome
	Err      *Error
	Elapsed  time.Duration
}

// Result is the aggregate of a resolution run. Attempts holds one entry per
// candidate in chain order, regardless of how far the run got.
type Result struct {
	Status   Status
	Chosen   string
	Path     string
	Attempts []Attempt
	Elapsed  time.Duration
}

// Succeeded reports whether the run installed anything.
func (r Result) Succeeded() bool {
	return r.Status == StatusDone
}

// Attempt returns the recorded attempt for the named strategy.
func (r Result) Attempt(name string) (Attempt, bool) {
	for _, a := range r.Attempts {
		if a.Strategy == name {
			return a, true
		}
	}
	return Attempt{}, false
}

// Errs collects the errors of failed and skipped attempts in chain order.
func (r Result) Errs() []error {
	var errs []error
	for _, a := range r.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Options adjust a resolution run.
type Options struct {
	// Sink receives progress events; nil discards them.
	Sink events.Sink
}

var timeNow = time.Now

// Resolve attempts candidates in order against env until one succeeds.
//
// The outcome contract: every candidate is recorded exactly once. The first
// success short-circuits the rest as NotAttempted and yields StatusDone.
// When all candidates fail or skip, the result is StatusAllFailed with nil
// error; the per-strategy errors live in Result.Attempts. A non-nil error
// return is reserved for invalid input and cancellation.
//
// Cancellation is honored between attempts: a context canceled mid-action
// surfaces as that strategy's failure first, and stops the run before the
// next attempt.
func Resolve(ctx context.Context, candidates []Strategy, env probe.Environment, opts Options) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, errors.New(messages.ResolverNoCandidates)
	}
	seen := make(map[string]bool, len(candidates))
	for i, s := range candidates {
		if s == nil {
			return Result{}, fmt.Errorf(messages.ResolverNilStrategyFmt, i)
		}
		if seen[s.Name()] {
			return Result{}, fmt.Errorf(messages.ResolverDuplicateNameFmt, s.Name())
		}
		seen[s.Name()] = true
	}

	sink := opts.Sink
	if sink == nil {
		sink = events.NopSink{}
	}

	start := timeNow()
	res := Result{Attempts: make([]Attempt, len(candidates))}
	for i, s := range candidates {
		res.Attempts[i].Strategy = s.Name()
	}

	for i, s := range candidates {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(candidates); j++ {
				res.Attempts[j].Outcome = OutcomeNotAttempted
			}
			res.Status = StatusCanceled
			res.Elapsed = timeNow().Sub(start)
			return res, fmt.Errorf(messages.ResolverCanceledFmt, err)
		}

		if ok, reason := s.Precondition(env); !ok {
			res.Attempts[i].Outcome = OutcomeSkipped
			res.Attempts[i].Err = NewError(KindPreconditionUnmet, s.Name(), errors.New(reason))
			sink.Emit(events.Event{
				Type:     events.TypeStrategySkipped,
				Strategy: s.Name(),
				Reason:   reason,
				At:       timeNow(),
			})
			continue
		}

		sink.Emit(events.Event{Type: events.TypeStrategyAttempted, Strategy: s.Name(), At: timeNow()})
		attemptStart := timeNow()
		path, err := s.Run(ctx, env)
		elapsed := timeNow().Sub(attemptStart)

		if err != nil {
			rerr := AsError(s.Name(), err)
			res.Attempts[i].Outcome = OutcomeFailed
			res.Attempts[i].Err = rerr
			res.Attempts[i].Elapsed = elapsed
			sink.Emit(events.Event{
				Type:     events.TypeStrategyFailed,
				Strategy: s.Name(),
				Err:      rerr,
				At:       timeNow(),
			})
			if rbErr := s.Rollback(ctx); rbErr != nil {
				// A failed rollback is reported but never stops the
				// fallback chain.
				sink.Emit(events.Event{
					Type:     events.TypeRollbackFailed,
					Strategy: s.Name(),
					Err:      rbErr,
					At:       timeNow(),
				})
			}
			continue
		}

		res.Attempts[i].Outcome = OutcomeSucceeded
		res.Attempts[i].Elapsed = elapsed
		for j := i + 1; j < len(candidates); j++ {
			res.Attempts[j].Outcome = OutcomeNotAttempted
		}
		res.Status = StatusDone
		res.Chosen = s.Name()
		res.Path = path
		res.Elapsed = timeNow().Sub(start)
		sink.Emit(events.Event{
			Type:     events.TypeStrategySucceeded,
			Strategy: s.Name(),
			Path:     path,
			At:       timeNow(),
		})
		sink.Emit(events.Event{
			Type:     events.TypeResolutionDone,
			Strategy: s.Name(),
			Path:     path,
			At:       timeNow(),
		})
		return res, nil
	}

	res.Status = StatusAllFailed
	res.Elapsed = timeNow().Sub(start)
	sink.Emit(events.Event{
		Type: events.TypeAllFailed,
		Err:  errors.Join(res.Errs()...),
		At:   timeNow(),
	})
	return res, nil
}
