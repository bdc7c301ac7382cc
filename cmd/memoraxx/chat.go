package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/memoraxx/internal/clock"
	"github.com/kalambet/memoraxx/internal/dispatch"
	"github.com/kalambet/memoraxx/internal/ollama"
)

const thinkingText = "Memoraxx is thinking"

// pace holds the delays of the console animations.
type pace struct {
	wake  time.Duration
	think time.Duration
	brain time.Duration
	bye   time.Duration
}

var defaultPace = pace{
	wake:  500 * time.Millisecond,
	think: 400 * time.Millisecond,
	brain: 300 * time.Millisecond,
	bye:   400 * time.Millisecond,
}

// chat is the interactive loop. Exactly one dispatch runs at a time; the
// thinking indicator is the only other goroutine writing to out, and it is
// joined before anything else is printed.
type chat struct {
	in         io.Reader
	out        io.Writer
	dispatcher *dispatch.Dispatcher
	clock      clock.Clock
	pace       pace

	// shutdown is set by the first interrupt and checked between turns.
	shutdown atomic.Bool
	// stop is closed together with shutdown so a pending read returns.
	stop chan struct{}
}

func newChat(in io.Reader, out io.Writer, d *dispatch.Dispatcher) *chat {
	return &chat{
		in:         in,
		out:        out,
		dispatcher: d,
		clock:      clock.Real(),
		pace:       defaultPace,
		stop:       make(chan struct{}),
	}
}

// requestShutdown sets the shutdown flag. It is safe to call more than once.
func (c *chat) requestShutdown() {
	if c.shutdown.CompareAndSwap(false, true) {
		close(c.stop)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			printError("%v", err)
		}
	}()

	ctx := cmd.Context()
	if err := ollama.EnsureReady(ctx, a.ollama, a.cfg.Ollama.Model, os.Stderr); err != nil {
		return fmt.Errorf("%w (is `ollama serve` running at %s?)", err, a.cfg.Ollama.BaseURL)
	}

	c := newChat(os.Stdin, os.Stdout, a.dispatcher)
	stopSignals := c.watchSignals()
	defer stopSignals()

	return c.run(ctx)
}

// watchSignals routes the first SIGINT/SIGTERM to requestShutdown; a second
// one exits immediately with status 130.
func (c *chat) watchSignals() func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigCh:
				if c.shutdown.Load() {
					fmt.Fprintln(os.Stderr, "\nforced exit")
					os.Exit(130)
				}
				c.requestShutdown()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// readLines feeds lines from in into the returned channel until EOF.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

func (c *chat) run(ctx context.Context) error {
	if !c.wakeUp() {
		fmt.Fprintln(c.out, "\nShutdown requested. Exiting.")
		return nil
	}
	fmt.Fprintln(c.out, styled(titleStyle, "Welcome to Memoraxx!"))
	fmt.Fprintln(c.out, "Ask anything. Type 'exit', 'quit', or 'clear' to manage memory.")

	lines := readLines(c.in)
	for !c.shutdown.Load() {
		fmt.Fprint(c.out, "\n> ")

		var (
			line string
			ok   bool
		)
		select {
		case line, ok = <-lines:
		case <-c.stop:
			fmt.Fprintln(c.out, "\nShutdown requested. Exiting.")
			return nil
		}
		if !ok {
			fmt.Fprintln(c.out)
			c.goodbye()
			return nil
		}

		if strings.TrimSpace(line) == "" {
			fmt.Fprintln(c.out, "Please enter a non-empty prompt.")
			continue
		}

		if c.dispatcher.Classify(line).Kind != dispatch.KindQuery {
			out := c.dispatcher.Dispatch(ctx, line)
			if out.Exit {
				c.goodbye()
				return nil
			}
			fmt.Fprintln(c.out, out.Message)
			continue
		}

		c.answer(ctx, line)
	}
	fmt.Fprintln(c.out, "\nShutdown requested. Exiting.")
	return nil
}

// answer runs one query with the thinking indicator and prints the result.
func (c *chat) answer(ctx context.Context, line string) {
	start := c.clock.Now()

	var done atomic.Bool
	joined := make(chan struct{})
	go c.think(&done, joined)

	out := c.dispatcher.Dispatch(ctx, line)
	done.Store(true)
	<-joined
	fmt.Fprint(c.out, "\r"+strings.Repeat(" ", len(thinkingText)+4)+"\r")

	elapsed := c.clock.Now().Sub(start)
	fmt.Fprintln(c.out, styled(bannerStyle, "\n--- AI Response ---"))
	fmt.Fprintln(c.out, out.Result.Text)
	fmt.Fprintln(c.out, styled(bannerStyle, "-------------------"))

	fmt.Fprint(c.out, "[Memoraxx: brain active")
	c.dots(3, c.pace.brain)
	fmt.Fprintln(c.out, "]")
	fmt.Fprintln(c.out, styled(mutedStyle,
		fmt.Sprintf("[%s, took %.2fs]", c.clock.Now().Format(time.ANSIC), elapsed.Seconds())))
}

// think animates the indicator until done is set, then closes joined.
func (c *chat) think(done *atomic.Bool, joined chan<- struct{}) {
	defer close(joined)
	for n := 0; !done.Load(); n++ {
		fmt.Fprint(c.out, "\r"+thinkingText+strings.Repeat(".", n%4)+"   ")
		<-c.clock.After(c.pace.think)
	}
}

// wakeUp prints the start animation. It reports false when shutdown was
// requested while it ran.
func (c *chat) wakeUp() bool {
	fmt.Fprint(c.out, "Waking up")
	for i := 0; i < 4 && !c.shutdown.Load(); i++ {
		fmt.Fprint(c.out, ".")
		<-c.clock.After(c.pace.wake)
	}
	if c.shutdown.Load() {
		return false
	}
	fmt.Fprintln(c.out)
	return true
}

func (c *chat) goodbye() {
	fmt.Fprint(c.out, "[Memoraxx: shutting down")
	c.dots(3, c.pace.bye)
	fmt.Fprintln(c.out, "]")
	fmt.Fprintln(c.out, dispatch.ExitMessage)
}

func (c *chat) dots(n int, d time.Duration) {
	for i := 0; i < n; i++ {
		fmt.Fprint(c.out, ".")
		<-c.clock.After(d)
	}
}
