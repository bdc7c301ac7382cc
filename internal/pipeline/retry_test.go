package pipeline

import (
	"errors"
	"testing"
	"time"
)

func TestDecide(t *testing.T) {
	errNet := errors.New("connection refused")
	tests := []struct {
		name    string
		attempt int
		status  int
		err     error
		want    step
	}{
		{"ok first", 1, 200, nil, stepSucceed},
		{"ok last", 3, 200, nil, stepSucceed},
		{"transport early", 1, 0, errNet, stepRetry},
		{"transport middle", 2, 0, errNet, stepRetry},
		{"transport last", 3, 0, errNet, stepFail},
		{"5xx early", 1, 500, nil, stepRetry},
		{"503 middle", 2, 503, nil, stepRetry},
		{"5xx last", 3, 502, nil, stepFail},
		{"404", 1, 404, nil, stepFail},
		{"429", 1, 429, nil, stepFail},
		{"201", 1, 201, nil, stepFail},
		{"301", 2, 301, nil, stepFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decide(tt.attempt, 3, tt.status, tt.err); got != tt.want {
				t.Errorf("decide(%d, 3, %d, %v) = %s, want %s", tt.attempt, tt.status, tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := backoff(time.Second, i+1); got != w {
			t.Errorf("backoff(1s, %d) = %v, want %v", i+1, got, w)
		}
	}
	if got := backoff(time.Second, 0); got != time.Second {
		t.Errorf("backoff(1s, 0) = %v, want 1s", got)
	}
	ceiling := time.Second << (MaxAttemptsLimit - 1)
	for _, n := range []int{MaxAttemptsLimit, 35, 64, 1000} {
		if got := backoff(time.Second, n); got != ceiling {
			t.Errorf("backoff(1s, %d) = %v, want %v", n, got, ceiling)
		}
	}
}

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		reply    string
		wantOK   bool
		wantName string
	}{
		{`{"tool_call":{"name":"run_command","arguments":{"command":"echo hi"}}}`, true, "run_command"},
		{"  {\"tool_call\": {\"name\": \"x\", \"arguments\": {}}}\n", true, "x"},
		{"```json\n{\"tool_call\":{\"name\":\"x\",\"arguments\":{}}}\n```", true, "x"},
		{`Sure! Here is the answer.`, false, ""},
		{`{"answer": 42}`, false, ""},
		{`{"tool_call": {"name": "", "arguments": {}}}`, false, ""},
		{`{"tool_call": {"name": "x"}}`, false, ""},
		{`{"tool_call": {"name": "x", "arguments": "echo"}}`, false, ""},
		{`{"tool_call": {"name": "x", "arguments": {}`, false, ""},
		{`{"tool_call": null}`, false, ""},
	}
	for _, tt := range tests {
		tc, ok := parseToolCall(tt.reply)
		if ok != tt.wantOK {
			t.Errorf("parseToolCall(%q) ok = %v, want %v", tt.reply, ok, tt.wantOK)
			continue
		}
		if ok && tc.Name != tt.wantName {
			t.Errorf("parseToolCall(%q) name = %q, want %q", tt.reply, tc.Name, tt.wantName)
		}
	}
}
