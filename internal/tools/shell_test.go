package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRunCommand_CapturesOutput(t *testing.T) {
	tool := &RunCommandTool{}
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo hi"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "hi\n" {
		t.Errorf("output = %q, want %q", out, "hi\n")
	}
}

func TestRunCommand_CombinesStderr(t *testing.T) {
	tool := &RunCommandTool{}
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo out; echo err 1>&2"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "out") || !strings.Contains(out, "err") {
		t.Errorf("output = %q, want both streams", out)
	}
}

func TestRunCommand_NonZeroExit(t *testing.T) {
	tool := &RunCommandTool{}
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo partial; exit 3"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "partial") || !strings.Contains(out, "[exit status 3]") {
		t.Errorf("output = %q", out)
	}
}

func TestRunCommand_LaunchFailure(t *testing.T) {
	tool := &RunCommandTool{Shell: "/nonexistent/shell"}
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"true"}`))
	if err == nil {
		t.Fatal("Execute with missing shell returned nil error")
	}
}

func TestRunCommand_MissingCommand(t *testing.T) {
	tool := &RunCommandTool{}
	for _, args := range []string{``, `null`, `{}`} {
		_, err := tool.Execute(context.Background(), json.RawMessage(args))
		if !errors.Is(err, ErrMissingArgument) {
			t.Errorf("args %q: error = %v, want ErrMissingArgument", args, err)
		}
	}
}

func TestRunCommand_InvalidArguments(t *testing.T) {
	tool := &RunCommandTool{}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`"echo hi"`)); err == nil {
		t.Error("Execute with a string argument returned nil error")
	}
}
