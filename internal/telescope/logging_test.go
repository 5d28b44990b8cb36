package telescope

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogStreams(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag})
	defer SetLogWriters(LogWriters{})

	Opsf("run %s aborted", "r1")
	Diagf("event %d skipped", 4)
	Tracef("dropped: trace stream disabled")

	if !strings.Contains(ops.String(), "run r1 aborted") {
		t.Errorf("ops stream = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "event 4 skipped") {
		t.Errorf("diag stream = %q", diag.String())
	}
	if strings.Contains(ops.String()+diag.String(), "dropped") {
		t.Error("trace output leaked into another stream")
	}
}
