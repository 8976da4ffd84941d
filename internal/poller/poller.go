package poller

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted reports that a wait state consumed its full
// attempt budget without observing a terminal status. The bound keeps
// a stuck remote job from hanging the process indefinitely.
var ErrBudgetExhausted = errors.New("polling budget exhausted")

// Status is one remote state string observed by a check.
type Status string

// CheckFunc fetches the current remote status.
type CheckFunc func(ctx context.Context) (Status, error)

// SleepFunc blocks for the given duration or until the context ends.
// Tests inject a recording implementation.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller repeats a sleep, spinner tick, and status check until a
// terminal status appears, the check fails, the context ends, or the
// budget runs out.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
	Spinner     *Spinner
}

// New builds a poller with the default blocking sleep.
func New(interval time.Duration, maxAttempts int, spinner *Spinner) *Poller {
	return &Poller{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Sleep:       defaultSleep,
		Spinner:     spinner,
	}
}

// Wait polls until check returns a member of the terminal set and
// returns that status. Any other status costs one attempt and another
// interval. MaxAttempts <= 0 means unbounded.
func (p *Poller) Wait(ctx context.Context, check CheckFunc, terminal map[Status]struct{}) (Status, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}
	defer p.Spinner.Clear()

	for attempt := 0; p.MaxAttempts <= 0 || attempt < p.MaxAttempts; attempt++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return "", err
		}
		p.Spinner.Advance()

		status, err := check(ctx)
		if err != nil {
			return "", err
		}
		if _, ok := terminal[status]; ok {
			return status, nil
		}
	}
	return "", ErrBudgetExhausted
}

// Terminal builds a terminal-status set from its members.
func Terminal(statuses ...Status) map[Status]struct{} {
	set := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		set[status] = struct{}{}
	}
	return set
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
