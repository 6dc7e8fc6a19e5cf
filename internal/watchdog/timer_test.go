package watchdog

import (
	"testing"
	"time"
)

func TestArmFiresExpiry(t *testing.T) {
	timers := New()
	timers.Arm(42, 10*time.Millisecond)

	select {
	case exp := <-timers.Expired():
		if exp.ProcID != 42 {
			t.Fatalf("got proc_id %d, want 42", exp.ProcID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for expiry")
	}
}

func TestKickResetsDeadline(t *testing.T) {
	timers := New()
	timers.Arm(7, 30*time.Millisecond)

	time.Sleep(15 * time.Millisecond)
	timers.Kick(7, 30*time.Millisecond)

	select {
	case <-timers.Expired():
		t.Fatal("expiry fired before the kicked deadline")
	case <-time.After(20 * time.Millisecond):
	}

	select {
	case exp := <-timers.Expired():
		if exp.ProcID != 7 {
			t.Fatalf("got proc_id %d, want 7", exp.ProcID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for kicked expiry")
	}
}

func TestDisarmPreventsExpiry(t *testing.T) {
	timers := New()
	timers.Arm(9, 15*time.Millisecond)
	timers.Disarm(9)

	select {
	case exp := <-timers.Expired():
		t.Fatalf("unexpected expiry for disarmed proc_id %d", exp.ProcID)
	case <-time.After(50 * time.Millisecond):
	}
}
