// Package composer assembles the completion prompt from tool declarations,
// conversation history and the new user turn.
package composer

import (
	"fmt"
	"strings"

	"github.com/kalambet/memoraxx/internal/memory"
	"github.com/kalambet/memoraxx/internal/tools"
)

// Persona is the fixed system preamble placed ahead of the history.
const Persona = "You are a highly knowledgeable and friendly AI assistant. " +
	"Use the following conversation history for context:\n\n"

// ToolCallConvention is the exact reply shape the model must use to
// request a tool.
const ToolCallConvention = `{"tool_call": {"name": "<tool name>", "arguments": {<arguments object>}}}`

// ToolDescriber lists the tools to declare.
type ToolDescriber interface {
	Describe() []tools.Descriptor
}

// HistorySource yields prior exchanges, oldest first.
type HistorySource interface {
	History() []memory.Interaction
}

// Composer builds continuation-style prompts for a raw completion endpoint.
type Composer struct {
	tools   ToolDescriber
	history HistorySource
}

// New creates a Composer. Either argument may be nil.
func New(tools ToolDescriber, history HistorySource) *Composer {
	return &Composer{tools: tools, history: history}
}

// Build returns, in order: the tool declarations and call convention, the
// persona preamble, the history as User/Assistant blocks, and the new turn
// ending in a bare "Assistant:" marker.
func (c *Composer) Build(prompt string) string {
	var sb strings.Builder

	if c.tools != nil {
		writeTools(&sb, c.tools.Describe())
	}

	sb.WriteString(Persona)

	if c.history != nil {
		for _, in := range c.history.History() {
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n\n", in.Prompt, in.Response)
		}
	}

	fmt.Fprintf(&sb, "User: %s\nAssistant:", prompt)
	return sb.String()
}

func writeTools(sb *strings.Builder, descs []tools.Descriptor) {
	if len(descs) == 0 {
		return
	}
	sb.WriteString("You can use the following tools:\n")
	for _, d := range descs {
		fmt.Fprintf(sb, "- %s: %s\n  parameters: %s\n", d.Name, d.Description, d.Parameters)
	}
	sb.WriteString("\nTo use a tool, reply with only a JSON object of this exact form and nothing else:\n")
	sb.WriteString(ToolCallConvention)
	sb.WriteString("\nOtherwise, answer normally.\n\n")
}
