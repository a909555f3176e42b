package slo

import (
	"context"
	"testing"
	"time"
)

func TestRecorderEvaluate_NoSamplesReturnsNotOK(t *testing.T) {
	r := &recorder{}

	if _, _, _, _, ok := r.evaluate(); ok {
		t.Error("evaluate() ok = true with no observations, want false")
	}
}

func TestRecorderEvaluate_ComputesAvailabilityAndErrorRate(t *testing.T) {
	r := &recorder{}

	for i := 0; i < 9; i++ {
		r.observe(200, 10*time.Millisecond)
	}
	r.observe(500, 10*time.Millisecond)

	availability, _, _, errorRate, ok := r.evaluate()
	if !ok {
		t.Fatal("evaluate() ok = false, want true")
	}
	if errorRate != 0.1 {
		t.Errorf("errorRate = %v, want 0.1", errorRate)
	}
	if availability != 0.9 {
		t.Errorf("availability = %v, want 0.9", availability)
	}
}

func TestRecorderEvaluate_ResetsWindow(t *testing.T) {
	r := &recorder{}
	r.observe(200, time.Millisecond)

	if _, _, _, _, ok := r.evaluate(); !ok {
		t.Fatal("first evaluate() ok = false, want true")
	}
	if _, _, _, _, ok := r.evaluate(); ok {
		t.Error("second evaluate() ok = true immediately after a reset, want false")
	}
}

func TestRecorderEvaluate_LatencyPercentilesOrder(t *testing.T) {
	r := &recorder{}
	for i := 1; i <= 100; i++ {
		r.observe(200, time.Duration(i)*time.Millisecond)
	}

	_, p95, p99, _, ok := r.evaluate()
	if !ok {
		t.Fatal("evaluate() ok = false, want true")
	}
	if p99 < p95 {
		t.Errorf("p99 (%v) < p95 (%v), want p99 >= p95", p99, p95)
	}
}

func TestRun_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
