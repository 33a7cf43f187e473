package spinner

import (
	"bytes"
	"strings"
	"testing"
)

func TestSpinnerNoColor(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "  waiting for peers ")
	s.sp = nil
	s.Start()
	s.Stop()
	if !strings.Contains(buf.String(), "waiting for peers") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
