package tsutsumi

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestExecutorRun_ReportsExitStatus(t *testing.T) {
	e := NewExecutor(context.Background())

	ok := exec.Command("sh", "-c", "exit 0")
	ok.Stdout = io.Discard
	ok.Stderr = io.Discard
	if err := e.Run(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := exec.Command("sh", "-c", "exit 7")
	bad.Stdout = io.Discard
	bad.Stderr = io.Discard
	err := e.Run(bad)
	if err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 7 {
		t.Fatalf("expected exit code 7, got %v", err)
	}
}

func TestExecutorRun_CancelKillsCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor(ctx)

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	cmd := exec.Command("sleep", "30")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	start := time.Now()
	err := e.Run(cmd)
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if !strings.Contains(err.Error(), "aborted") {
		t.Fatalf("expected abort error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancellation took too long")
	}
}

func TestRunLogged_CapturesOutput(t *testing.T) {
	setupProject(t)
	e := NewExecutor(context.Background())

	logPath, err := e.RunLogged(exec.Command("sh", "-c", "echo hello build"), "step")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "hello build") {
		t.Fatalf("log missing command output: %q", data)
	}
}

func TestRunLogged_ReturnsLogPathOnFailure(t *testing.T) {
	setupProject(t)
	e := NewExecutor(context.Background())

	logPath, err := e.RunLogged(exec.Command("sh", "-c", "echo doomed; exit 2"), "step")
	if err == nil {
		t.Fatalf("expected error")
	}
	if logPath == "" {
		t.Fatalf("expected log path even on failure")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "doomed") {
		t.Fatalf("log missing failing command output: %q", data)
	}
}
