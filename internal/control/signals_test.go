package control

import (
	"testing"
	"time"
)

func TestSleepCompletes(t *testing.T) {
	s := New()
	start := time.Now()
	if !s.Sleep(50 * time.Millisecond) {
		t.Fatalf("sleep reported interruption without a trigger")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("sleep returned after %s, expected at least 50ms", elapsed)
	}
}

func TestSleepInterruptedPromptly(t *testing.T) {
	s := New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		s.RequestStop()
	}()

	start := time.Now()
	if s.Sleep(10 * time.Second) {
		t.Fatalf("sleep completed despite stop request")
	}
	// The wait must end within one polling granularity of the trigger,
	// not after the full duration.
	if elapsed := time.Since(start); elapsed > 2*Granularity+100*time.Millisecond {
		t.Fatalf("sleep took %s to observe stop request", elapsed)
	}
}

func TestUpdateImpliesInterrupted(t *testing.T) {
	s := New()
	s.RequestUpdate()

	if !s.StopRequested() {
		t.Fatalf("update request should also halt the loop")
	}
	if !s.UpdateRequested() {
		t.Fatalf("update flag not set")
	}
	if !s.Interrupted() {
		t.Fatalf("interrupted should be true after update request")
	}
	if s.Sleep(time.Second) {
		t.Fatalf("sleep should return immediately when already interrupted")
	}
}
