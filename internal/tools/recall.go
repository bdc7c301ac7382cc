package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/memoraxx/internal/storage"
)

// Archive is the searchable interaction history.
type Archive interface {
	SearchInteractions(query string, limit, offset int) ([]storage.Interaction, error)
}

// RecallHistoryTool searches archived exchanges, including ones that have
// already left the in-memory window.
type RecallHistoryTool struct {
	Archive Archive
}

func (t *RecallHistoryTool) Name() string { return "recall_history" }

func (t *RecallHistoryTool) Description() string {
	return "Search earlier conversations for exchanges containing all of the given keywords."
}

func (t *RecallHistoryTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"Keywords to search for"},"limit":{"type":"integer","description":"Maximum results (default 5)"}},"required":["query"]}`)
}

func (t *RecallHistoryTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("%w: query", ErrMissingArgument)
	}

	found, err := t.Archive.SearchInteractions(in.Query, in.Limit, 0)
	if err != nil {
		return "", fmt.Errorf("searching archive: %w", err)
	}
	if len(found) == 0 {
		return "No earlier conversations matched.", nil
	}

	var sb strings.Builder
	for _, in := range found {
		fmt.Fprintf(&sb, "[%s]\nUser: %s\nAssistant: %s\n\n",
			in.CreatedAt.Local().Format("2006-01-02 15:04"), in.Prompt, in.Response)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
