package timeutil

import (
	"testing"
	"time"
)

func TestNewTimeFrame(t *testing.T) {
	start := time.Date(2020, 1, 2, 3, 4, 5, 0, time.FixedZone("KST", 9*3600))
	end := start.Add(90 * time.Second)

	tf := NewTimeFrame(start, end)
	if tf.Took != 90*time.Second {
		t.Fatalf("unexpected took %v", tf.Took)
	}
	if tf.TookString != "1m30s" {
		t.Fatalf("unexpected took string %q", tf.TookString)
	}
	if tf.StartUTCRFC3339Nano != "2020-01-01T18:04:05Z" {
		t.Fatalf("unexpected start %q", tf.StartUTCRFC3339Nano)
	}
	if tf.StartUTC.Location() != time.UTC {
		t.Fatalf("unexpected location %v", tf.StartUTC.Location())
	}
	if tf.IsZero() {
		t.Fatal("unexpected zero time frame")
	}
	if !(TimeFrame{}).IsZero() {
		t.Fatal("expected zero time frame")
	}
}

func TestSince(t *testing.T) {
	tf := Since(time.Now().Add(-time.Second))
	if tf.Took < time.Second {
		t.Fatalf("unexpected took %v", tf.Took)
	}
}
