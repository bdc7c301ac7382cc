package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

// RunCommandTool runs a shell command and returns its combined output.
//
// The command runs with the user's privileges, without a timeout or any
// sandbox. It is only cancelled when ctx is.
type RunCommandTool struct {
	// Shell defaults to "sh".
	Shell string
}

func (t *RunCommandTool) Name() string { return "run_command" }

func (t *RunCommandTool) Description() string {
	return "Run a shell command on the user's machine and return its combined stdout and stderr."
}

func (t *RunCommandTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"command":{"type":"string","description":"The shell command to run"}},"required":["command"]}`)
}

func (t *RunCommandTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Command string `json:"command"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Command == "" {
		return "", fmt.Errorf("%w: command", ErrMissingArgument)
	}

	shell := t.Shell
	if shell == "" {
		shell = "sh"
	}

	out, err := exec.CommandContext(ctx, shell, "-c", in.Command).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The command ran; its output is the useful result.
			return fmt.Sprintf("%s[exit status %d]", out, exitErr.ExitCode()), nil
		}
		return "", fmt.Errorf("launching command: %w", err)
	}
	return string(out), nil
}
