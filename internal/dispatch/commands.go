package dispatch

import "context"

// Clearer empties conversation memory.
type Clearer interface {
	Clear()
}

// ExitMessage is printed when the session ends by command.
const ExitMessage = "Exiting. Goodbye!"

// DefaultCommands returns exit, quit and clear, in that order.
func DefaultCommands(memory Clearer) []Command {
	exit := func(context.Context) Effect {
		return Effect{Message: ExitMessage, Exit: true}
	}
	return []Command{
		{Name: "exit", Help: "end the session", Run: exit},
		{Name: "quit", Help: "end the session", Run: exit},
		{Name: "clear", Help: "forget the conversation history", Run: func(context.Context) Effect {
			memory.Clear()
			return Effect{Message: "Memory cleared."}
		}},
	}
}
