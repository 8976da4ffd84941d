package poller_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"epublift/internal/poller"
)

func instantSleep(counter *int) poller.SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		if counter != nil {
			*counter++
		}
		return ctx.Err()
	}
}

func scriptedCheck(t *testing.T, statuses ...poller.Status) (poller.CheckFunc, *int) {
	t.Helper()
	calls := new(int)
	return func(ctx context.Context) (poller.Status, error) {
		if *calls >= len(statuses) {
			t.Fatalf("check called %d times, only %d statuses scripted", *calls+1, len(statuses))
		}
		status := statuses[*calls]
		*calls++
		return status, nil
	}, calls
}

func TestWaitReturnsFirstTerminalStatus(t *testing.T) {
	check, calls := scriptedCheck(t, "processing", "processing", "convert")
	p := &poller.Poller{Interval: time.Millisecond, MaxAttempts: 10, Sleep: instantSleep(nil)}

	status, err := p.Wait(context.Background(), check, poller.Terminal("convert", "processing_failed"))
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if status != "convert" {
		t.Fatalf("unexpected terminal status %q", status)
	}
	if *calls != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", *calls)
	}
}

func TestWaitReturnsFailureTerminals(t *testing.T) {
	check, _ := scriptedCheck(t, "processing", "processing_failed")
	p := &poller.Poller{MaxAttempts: 10, Sleep: instantSleep(nil)}

	status, err := p.Wait(context.Background(), check, poller.Terminal("convert", "processing_failed"))
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if status != "processing_failed" {
		t.Fatalf("expected failure terminal, got %q", status)
	}
}

func TestWaitSleepsBeforeEveryCheck(t *testing.T) {
	sleeps := 0
	check, calls := scriptedCheck(t, "processing", "ok")
	p := &poller.Poller{MaxAttempts: 10, Sleep: instantSleep(&sleeps)}

	if _, err := p.Wait(context.Background(), check, poller.Terminal("ok", "failed")); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if sleeps != *calls {
		t.Fatalf("expected one sleep per check, got %d sleeps for %d checks", sleeps, *calls)
	}
}

func TestWaitExhaustsBudget(t *testing.T) {
	p := &poller.Poller{MaxAttempts: 4, Sleep: instantSleep(nil)}
	checks := 0
	check := func(ctx context.Context) (poller.Status, error) {
		checks++
		return "processing", nil
	}

	_, err := p.Wait(context.Background(), check, poller.Terminal("ok"))
	if !errors.Is(err, poller.ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if checks != 4 {
		t.Fatalf("expected 4 checks, got %d", checks)
	}
}

func TestWaitPropagatesCheckErrors(t *testing.T) {
	boom := errors.New("status fetch failed")
	p := &poller.Poller{MaxAttempts: 10, Sleep: instantSleep(nil)}
	check := func(ctx context.Context) (poller.Status, error) { return "", boom }

	if _, err := p.Wait(context.Background(), check, poller.Terminal("ok")); !errors.Is(err, boom) {
		t.Fatalf("expected check error, got %v", err)
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := poller.New(time.Hour, 10, nil)
	check := func(ctx context.Context) (poller.Status, error) {
		t.Fatal("check must not run after cancellation")
		return "", nil
	}

	if _, err := p.Wait(ctx, check, poller.Terminal("ok")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSpinnerCyclesFourFrames(t *testing.T) {
	var buf bytes.Buffer
	spinner := poller.NewSpinnerWriter(&buf, true)
	for i := 0; i < 5; i++ {
		spinner.Advance()
	}
	spinner.Clear()

	out := buf.String()
	for _, frame := range []string{"\r|", "\r/", "\r-", "\r\\"} {
		if !strings.Contains(out, frame) {
			t.Fatalf("missing frame %q in %q", frame, out)
		}
	}
	if strings.Count(out, "\r|") != 2 {
		t.Fatalf("expected frame cycle to wrap, got %q", out)
	}
	if !strings.HasSuffix(out, "\r \r") {
		t.Fatalf("expected trailing clear, got %q", out)
	}
}

func TestSpinnerDisabledStaysSilent(t *testing.T) {
	var buf bytes.Buffer
	spinner := poller.NewSpinnerWriter(&buf, false)
	spinner.Advance()
	spinner.Clear()
	if buf.Len() != 0 {
		t.Fatalf("disabled spinner wrote %q", buf.String())
	}
}
