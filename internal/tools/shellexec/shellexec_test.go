package shellexec

import (
	"context"
	"testing"
	"time"
)

func TestRunner_Run_Success(t *testing.T) {
	r := NewRunner(t.TempDir(), time.Second)
	stdout, _, exitCode, err := r.Run(context.Background(), "echo", []string{"hello"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exitCode != 0 {
		t.Errorf("exitCode = %d, want 0", exitCode)
	}
	if stdout != "hello\n" {
		t.Errorf("stdout = %q, want %q", stdout, "hello\n")
	}
}

func TestRunner_Run_NonZeroExit(t *testing.T) {
	r := NewRunner(t.TempDir(), time.Second)
	_, _, exitCode, err := r.Run(context.Background(), "false", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exitCode == 0 {
		t.Errorf("exitCode = 0, want non-zero")
	}
}

func TestRunner_Run_DeniedPattern(t *testing.T) {
	r := NewRunner(t.TempDir(), time.Second)
	_, _, _, err := r.Run(context.Background(), "rm -rf /", nil)
	if err == nil {
		t.Fatalf("expected an error running a denied command pattern")
	}
}

func TestRunner_Run_TimesOut(t *testing.T) {
	r := NewRunner(t.TempDir(), 10*time.Millisecond)
	_, _, _, err := r.Run(context.Background(), "sleep", []string{"1"})
	if err == nil {
		t.Fatalf("expected a timeout error for a command exceeding the runner timeout")
	}
}
