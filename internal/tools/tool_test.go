package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type stubTool struct {
	name string
	out  string
	err  error
	got  json.RawMessage
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub " + s.name }
func (s *stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	s.got = args
	return s.out, s.err
}

func TestRegister_PreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&stubTool{name: n}); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
	}

	descs := r.Describe()
	if len(descs) != 3 {
		t.Fatalf("Describe() returned %d, want 3", len(descs))
	}
	for i, want := range []string{"zeta", "alpha", "mid"} {
		if descs[i].Name != want {
			t.Errorf("Describe()[%d].Name = %q, want %q", i, descs[i].Name, want)
		}
	}
	if descs[0].Description != "stub zeta" {
		t.Errorf("Description = %q", descs[0].Description)
	}
}

func TestRegister_Errors(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "  "}); !errors.Is(err, ErrEmptyToolName) {
		t.Errorf("empty name error = %v, want ErrEmptyToolName", err)
	}
	if err := r.Register(&stubTool{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubTool{name: "a"}); !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("duplicate error = %v, want ErrDuplicateTool", err)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	r := NewRegistry()
	got := r.Execute(context.Background(), "nope", nil)
	if !strings.HasPrefix(got, "Error:") || !strings.Contains(got, "nope") {
		t.Errorf("Execute(nope) = %q, want error text naming the tool", got)
	}
}

func TestExecute_PassesArguments(t *testing.T) {
	r := NewRegistry()
	st := &stubTool{name: "echo", out: "ok"}
	r.Register(st)

	got := r.Execute(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	if got != "ok" {
		t.Errorf("Execute = %q, want ok", got)
	}
	if string(st.got) != `{"x":1}` {
		t.Errorf("tool received %s", st.got)
	}
}

func TestExecute_ToolErrorBecomesText(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "bad", err: errors.New("boom")})

	got := r.Execute(context.Background(), "bad", nil)
	if got != "Error: bad: boom" {
		t.Errorf("Execute = %q, want %q", got, "Error: bad: boom")
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(nil)
	names := strings.Join(r.Names(), ",")
	if names != "run_command,fetch_url,read_pdf" {
		t.Errorf("Names() = %s", names)
	}

	r = NewDefaultRegistry(&fakeArchive{})
	if !r.Has("recall_history") {
		t.Error("recall_history not registered with an archive")
	}
}

func TestMustRegister_PanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	mustRegister(r, &RunCommandTool{})

	defer func() {
		if recover() == nil {
			t.Error("mustRegister accepted a duplicate tool name")
		}
	}()
	mustRegister(r, &RunCommandTool{})
}
