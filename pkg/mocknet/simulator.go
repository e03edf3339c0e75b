package mocknet

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// ErrSimulatedFailure is returned when failure injection trips for a call.
var ErrSimulatedFailure = pkgerrors.New(pkgerrors.CodeDependency, "simulated network failure")

type callRecorder interface {
	ObserveSimulatedCall(operation, outcome string, duration time.Duration)
}

// Simulator stands in for a remote collaborator: every call waits Latency and
// fails with probability FailureRate before running.
type Simulator struct {
	Latency     time.Duration
	FailureRate float64

	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand func() float64
	// Sleep blocks for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	recorder callRecorder
}

// New returns a simulator reporting call durations to recorder, which may be nil.
func New(latency time.Duration, failureRate float64, recorder callRecorder) *Simulator {
	return &Simulator{
		Latency:     latency,
		FailureRate: failureRate,
		recorder:    recorder,
	}
}

// WithLatency returns a copy of s with a different latency.
func (s *Simulator) WithLatency(latency time.Duration) *Simulator {
	if s == nil {
		return &Simulator{Latency: latency}
	}
	clone := *s
	clone.Latency = latency
	return &clone
}

// Instant returns a simulator that neither sleeps nor fails.
func Instant() *Simulator {
	return &Simulator{}
}

// Call waits the simulated latency, injects failures, then runs fn. A done
// context aborts the wait and fn is never invoked.
func Call[T any](ctx context.Context, sim *Simulator, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if sim == nil {
		sim = Instant()
	}
	start := time.Now()

	if err := sim.wait(ctx); err != nil {
		sim.observe(operation, OutcomeCancelled, start)
		return zero, err
	}
	if sim.shouldFail() {
		sim.observe(operation, OutcomeFailure, start)
		return zero, ErrSimulatedFailure.WithDetails(map[string]any{"operation": operation})
	}

	out, err := fn(ctx)
	switch {
	case err == nil:
		sim.observe(operation, OutcomeSuccess, start)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		sim.observe(operation, OutcomeCancelled, start)
	default:
		sim.observe(operation, OutcomeError, start)
	}
	return out, err
}

// Do is Call for operations without a result.
func Do(ctx context.Context, sim *Simulator, operation string, fn func(context.Context) error) error {
	_, err := Call(ctx, sim, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (s *Simulator) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Latency <= 0 {
		return nil
	}
	if s.Sleep != nil {
		return s.Sleep(ctx, s.Latency)
	}
	return sleep(ctx, s.Latency)
}

func (s *Simulator) shouldFail() bool {
	if s.FailureRate <= 0 {
		return false
	}
	if s.FailureRate >= 1 {
		return true
	}
	draw := rand.Float64
	if s.Rand != nil {
		draw = s.Rand
	}
	return draw() < s.FailureRate
}

func (s *Simulator) observe(operation, outcome string, start time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveSimulatedCall(operation, outcome, time.Since(start))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
