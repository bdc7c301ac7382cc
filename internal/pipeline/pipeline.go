// Package pipeline runs one completion call: prompt assembly, the HTTP
// exchange with retry and backoff, response parsing, the tool-call check,
// and recording the exchange into memory.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/memoraxx/internal/clock"
	"github.com/kalambet/memoraxx/internal/metrics"
	"github.com/kalambet/memoraxx/internal/storage"
)

const (
	DefaultMaxAttempts = 3
	// MaxAttemptsLimit is the most attempts a single call may make.
	MaxAttemptsLimit   = 5
	DefaultBaseBackoff = time.Second
)

// Transport performs one POST of a generate request body.
type Transport interface {
	Generate(ctx context.Context, body []byte) (status int, payload []byte, err error)
}

// PromptBuilder assembles the full prompt for a user turn.
type PromptBuilder interface {
	Build(prompt string) string
}

// ToolRunner executes a named tool and returns its output as text.
type ToolRunner interface {
	Execute(ctx context.Context, name string, args json.RawMessage) string
}

// Memory receives completed exchanges.
type Memory interface {
	Append(prompt, response string) int
	Persist() error
	TotalTokens() int
	Len() int
}

// Archive stores every finished call, successful or not.
type Archive interface {
	SaveInteraction(storage.Interaction) (storage.Interaction, error)
}

// Options configures a Pipeline. Model is required.
type Options struct {
	Model       string
	MaxAttempts int
	BaseBackoff time.Duration
	Clock       clock.Clock
	Archive     Archive
	Metrics     *metrics.Metrics
	SessionID   string
}

// Pipeline performs completion calls. It is not safe for concurrent use;
// callers keep at most one Complete in flight.
type Pipeline struct {
	transport Transport
	builder   PromptBuilder
	tools     ToolRunner
	memory    Memory
	opts      Options
}

// New creates a Pipeline.
func New(transport Transport, builder PromptBuilder, tools ToolRunner, memory Memory, opts Options) *Pipeline {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	opts.MaxAttempts = min(opts.MaxAttempts, MaxAttemptsLimit)
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = DefaultBaseBackoff
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Pipeline{transport: transport, builder: builder, tools: tools, memory: memory, opts: opts}
}

// Model returns the model name sent with every request.
func (p *Pipeline) Model() string { return p.opts.Model }

// Result is the outcome of one completion call. Text is always displayable:
// on failure it carries the rendered error.
type Result struct {
	Text       string
	Err        error
	Attempts   int
	Tool       string
	TokenCount int
	Duration   time.Duration
}

// Failed reports whether the call ended in a terminal failure.
func (r Result) Failed() bool { return r.Err != nil }

// request is the JSON body sent to the generate endpoint.
type request struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Complete runs a completion call for prompt. It never returns an error:
// failures are folded into Result.Text and Result.Err.
func (p *Pipeline) Complete(ctx context.Context, prompt string) Result {
	start := p.opts.Clock.Now()
	res := p.complete(ctx, prompt)
	res.Duration = p.opts.Clock.Now().Sub(start)

	p.opts.Metrics.ObserveCompletion(outcome(res.Err), res.Duration)
	if res.Err != nil {
		res.Text = failureText(res.Err)
		slog.Warn("completion failed", "attempts", res.Attempts, "error", res.Err)
	}
	if !errors.Is(res.Err, ErrEmptyPrompt) {
		p.archive(prompt, res)
	}
	return res
}

func (p *Pipeline) complete(ctx context.Context, prompt string) Result {
	if strings.TrimSpace(prompt) == "" {
		return Result{Err: ErrEmptyPrompt}
	}

	body, err := json.Marshal(request{
		Model:  p.opts.Model,
		Prompt: p.builder.Build(prompt),
		Stream: false,
	})
	if err != nil {
		return Result{Err: err}
	}

	payload, attempts, err := p.send(ctx, body)
	if err != nil {
		return Result{Err: err, Attempts: attempts}
	}

	text, err := parseResponse(payload)
	if err != nil {
		return Result{Err: err, Attempts: attempts}
	}

	res := Result{Text: text, Attempts: attempts}
	if tc, ok := parseToolCall(text); ok {
		slog.Info("dispatching tool call", "tool", tc.Name)
		p.opts.Metrics.ObserveToolCall(tc.Name)
		res.Text = p.tools.Execute(ctx, tc.Name, tc.Arguments)
		res.Tool = tc.Name
	}

	res.TokenCount = p.memory.Append(prompt, res.Text)
	if err := p.memory.Persist(); err != nil {
		slog.Warn("persisting memory", "error", err)
	}
	p.opts.Metrics.SetMemory(p.memory.TotalTokens(), p.memory.Len())
	return res
}

// send posts body until decide says to stop. It returns the payload of the
// successful attempt and the number of attempts made.
func (p *Pipeline) send(ctx context.Context, body []byte) ([]byte, int, error) {
	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			wait := backoff(p.opts.BaseBackoff, attempt-1)
			select {
			case <-ctx.Done():
				return nil, attempt - 1, &TransportError{Err: ctx.Err()}
			case <-p.opts.Clock.After(wait):
			}
		}

		p.opts.Metrics.ObserveAttempt()
		status, payload, err := p.transport.Generate(ctx, body)

		switch decide(attempt, p.opts.MaxAttempts, status, err) {
		case stepSucceed:
			return payload, attempt, nil
		case stepRetry:
			slog.Debug("retrying completion", "attempt", attempt, "status", status, "error", err)
			p.opts.Metrics.ObserveRetry()
		case stepFail:
			if err != nil {
				return nil, attempt, &TransportError{Err: err}
			}
			return nil, attempt, &StatusError{Code: status}
		}
	}
}

func parseResponse(payload []byte) (string, error) {
	var r struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return "", &ParseError{Err: err}
	}
	if r.Response == nil {
		return "", ErrMissingResponse
	}
	return *r.Response, nil
}

func (p *Pipeline) archive(prompt string, res Result) {
	if p.opts.Archive == nil {
		return
	}
	status := storage.StatusCompleted
	if res.Failed() {
		status = storage.StatusFailed
	}
	_, err := p.opts.Archive.SaveInteraction(storage.Interaction{
		SessionID:  p.opts.SessionID,
		Prompt:     prompt,
		Response:   res.Text,
		TokenCount: res.TokenCount,
		Model:      p.opts.Model,
		Status:     status,
		ToolName:   res.Tool,
		Attempts:   max(res.Attempts, 1),
		DurationMS: res.Duration.Milliseconds(),
	})
	if err != nil {
		slog.Warn("archiving interaction", "error", err)
	}
}
