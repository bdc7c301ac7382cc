package dispatch

import (
	"context"
	"testing"

	"github.com/kalambet/memoraxx/internal/pipeline"
)

type fakeCompleter struct {
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) pipeline.Result {
	f.prompts = append(f.prompts, prompt)
	return pipeline.Result{Text: "answer to " + prompt}
}

type fakeMemory struct{ cleared int }

func (f *fakeMemory) Clear() { f.cleared++ }

func newTestDispatcher() (*Dispatcher, *fakeCompleter, *fakeMemory) {
	c := &fakeCompleter{}
	m := &fakeMemory{}
	return New(c, DefaultCommands(m)...), c, m
}

func TestClassify(t *testing.T) {
	d, _, _ := newTestDispatcher()
	tests := []struct {
		line     string
		kind     Kind
		command  string
		distance int
	}{
		{"exit", KindCommand, "exit", 0},
		{"EXIT", KindCommand, "exit", 0},
		{"  quit  ", KindCommand, "quit", 0},
		{"exti", KindCommand, "exit", 2},
		{"exi", KindCommand, "exit", 1},
		{"clr", KindCommand, "clear", 2},
		{"cleer", KindCommand, "clear", 1},
		{"qu", KindCommand, "quit", 2},
		// "it" is distance 2 from both exit and quit; exit is declared first.
		{"it", KindCommand, "exit", 2},
		{"e", KindSuggestion, "exit", 3},
		{"clearall", KindSuggestion, "clear", 3},
		{"exitt quit", KindQuery, "", 0},
		{"what is the capital of France?", KindQuery, "", 0},
	}
	for _, tt := range tests {
		m := d.Classify(tt.line)
		if m.Kind != tt.kind {
			t.Errorf("Classify(%q).Kind = %s, want %s", tt.line, m.Kind, tt.kind)
			continue
		}
		if tt.command != "" {
			if m.Command == nil || m.Command.Name != tt.command {
				t.Errorf("Classify(%q).Command = %v, want %s", tt.line, m.Command, tt.command)
			}
			if m.Distance != tt.distance {
				t.Errorf("Classify(%q).Distance = %d, want %d", tt.line, m.Distance, tt.distance)
			}
		}
	}
}

func TestDispatch_TypoExecutesExit(t *testing.T) {
	d, c, _ := newTestDispatcher()

	out := d.Dispatch(context.Background(), "exti")
	if out.Kind != KindCommand || !out.Exit {
		t.Errorf("Dispatch(exti) = %+v, want exit command", out)
	}
	if out.Message != ExitMessage {
		t.Errorf("Message = %q", out.Message)
	}
	if len(c.prompts) != 0 {
		t.Errorf("command reached the completer: %v", c.prompts)
	}
}

func TestDispatch_ClearRunsEffect(t *testing.T) {
	d, _, m := newTestDispatcher()

	out := d.Dispatch(context.Background(), "Clear")
	if out.Exit {
		t.Error("clear requested exit")
	}
	if m.cleared != 1 {
		t.Errorf("Clear called %d times, want 1", m.cleared)
	}
	if out.Message != "Memory cleared." {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestDispatch_SuggestionConsumesInput(t *testing.T) {
	d, c, m := newTestDispatcher()

	out := d.Dispatch(context.Background(), "clearall")
	if out.Kind != KindSuggestion {
		t.Fatalf("Kind = %s, want suggestion", out.Kind)
	}
	if out.Message != "Did you mean 'clear'?" {
		t.Errorf("Message = %q", out.Message)
	}
	if len(c.prompts) != 0 || m.cleared != 0 || out.Exit {
		t.Errorf("suggestion had side effects: prompts=%v cleared=%d exit=%v", c.prompts, m.cleared, out.Exit)
	}
}

func TestDispatch_QueryForwardedVerbatim(t *testing.T) {
	d, c, _ := newTestDispatcher()

	line := "  Exitt Quit  "
	out := d.Dispatch(context.Background(), line)
	if out.Kind != KindQuery {
		t.Fatalf("Kind = %s, want query", out.Kind)
	}
	if len(c.prompts) != 1 || c.prompts[0] != line {
		t.Errorf("completer received %q, want %q", c.prompts, line)
	}
	if out.Result.Text != "answer to "+line {
		t.Errorf("Result.Text = %q", out.Result.Text)
	}
}

func TestDispatch_NoCommands(t *testing.T) {
	c := &fakeCompleter{}
	d := New(c)
	out := d.Dispatch(context.Background(), "exit")
	if out.Kind != KindQuery || len(c.prompts) != 1 {
		t.Errorf("with no commands, Dispatch = %+v", out)
	}
}
