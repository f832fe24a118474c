package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestCronSchedulerRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a cron", Options{})
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected invalid expression to fail")
	}
}

func TestCronSchedulerRunOnStart(t *testing.T) {
	t.Parallel()

	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	triggered := make(chan time.Time, 1)
	s := NewCronScheduler("0 9 * * 1-5", Options{Location: seoul, RunOnStart: true})
	if err := s.Start(context.Background(), func(at time.Time) { triggered <- at }); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	select {
	case at := <-triggered:
		if at.Location().String() != "Asia/Seoul" {
			t.Fatalf("expected trigger in scheduler location, got %s", at.Location())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected immediate run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop should be a no-op, got %v", err)
	}
}
