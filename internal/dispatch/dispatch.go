// Package dispatch routes a line of user input to a built-in command, a
// typo suggestion, or a completion call.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/memoraxx/internal/pipeline"
	"github.com/kalambet/memoraxx/internal/textmetrics"
)

const (
	// ExecuteDistance is the largest edit distance treated as the command itself.
	ExecuteDistance = 2
	// SuggestDistance is the largest edit distance that earns a suggestion.
	SuggestDistance = 3
)

// Kind is how an input line was routed.
type Kind int

const (
	KindCommand Kind = iota
	KindSuggestion
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindSuggestion:
		return "suggestion"
	default:
		return "query"
	}
}

// Effect is what running a command produced.
type Effect struct {
	Message string
	Exit    bool
}

// Command is a built-in action bound to a name.
type Command struct {
	Name string
	Help string
	Run  func(ctx context.Context) Effect
}

// Completer runs a completion call.
type Completer interface {
	Complete(ctx context.Context, prompt string) pipeline.Result
}

// Match is the classification of one line.
type Match struct {
	Kind     Kind
	Command  *Command
	Distance int
}

// Outcome is the result of dispatching one line.
type Outcome struct {
	Match
	// Message holds the command's message or the suggestion text.
	Message string
	Exit    bool
	// Result is set for KindQuery.
	Result pipeline.Result
}

// Dispatcher holds a fixed command set, in declaration order.
type Dispatcher struct {
	commands  []Command
	completer Completer
}

// New creates a Dispatcher. Ties in distance go to the earlier command.
func New(completer Completer, commands ...Command) *Dispatcher {
	return &Dispatcher{commands: commands, completer: completer}
}

// Commands returns the command set in declaration order.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, len(d.commands))
	copy(out, d.commands)
	return out
}

// Classify finds the nearest command to the trimmed, lowercased line and
// applies the thresholds:
//
//	distance <= 2  -> command
//	distance == 3  -> suggestion
//	otherwise      -> query
func (d *Dispatcher) Classify(line string) Match {
	input := strings.ToLower(strings.TrimSpace(line))

	best := -1
	bestDist := 0
	for i := range d.commands {
		dist := textmetrics.EditDistance(input, d.commands[i].Name)
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}

	switch {
	case best < 0:
		return Match{Kind: KindQuery}
	case bestDist <= ExecuteDistance:
		return Match{Kind: KindCommand, Command: &d.commands[best], Distance: bestDist}
	case bestDist <= SuggestDistance:
		return Match{Kind: KindSuggestion, Command: &d.commands[best], Distance: bestDist}
	default:
		return Match{Kind: KindQuery, Distance: bestDist}
	}
}

// Dispatch classifies line and acts on it. Suggestions consume the line
// without any network activity; queries are forwarded unmodified.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) Outcome {
	m := d.Classify(line)
	out := Outcome{Match: m}

	switch m.Kind {
	case KindCommand:
		eff := m.Command.Run(ctx)
		out.Message, out.Exit = eff.Message, eff.Exit
	case KindSuggestion:
		out.Message = fmt.Sprintf("Did you mean '%s'?", m.Command.Name)
	case KindQuery:
		out.Result = d.completer.Complete(ctx, line)
	}
	return out
}
