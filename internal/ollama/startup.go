package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EnsureReady checks that Ollama is running and model is available,
// pulling it with progress output written to w when missing. It then sends
// an empty generate request so the model is loaded before the first real
// prompt. Warm-up failures are reported to w but are not fatal.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return ErrNotRunning
	}

	if c.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
	} else {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		if err := c.PullModel(ctx, model, progressPrinter(w)); err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	fmt.Fprintf(w, "model %s: warming up...\n", model)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// An empty prompt makes Ollama load the model without generating.
	body, _ := json.Marshal(GenerateRequest{Model: model})
	status, _, err := c.Generate(warmCtx, body)
	switch {
	case err != nil:
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	case status != http.StatusOK:
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): status %d\n", model, status)
	default:
		fmt.Fprintf(w, "model %s: warm\n", model)
	}
	return nil
}

func progressPrinter(w io.Writer) func(PullProgress) {
	return func(p PullProgress) {
		if p.Total > 0 {
			pct := float64(p.Completed) / float64(p.Total) * 100
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
		} else {
			fmt.Fprintf(w, "  %s\n", p.Status)
		}
	}
}
