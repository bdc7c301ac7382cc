package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledongthuc/pdf"
)

const maxPDFOutput = 12000

// ReadPDFTool extracts the plain text of a local PDF file.
type ReadPDFTool struct{}

func (t *ReadPDFTool) Name() string { return "read_pdf" }

func (t *ReadPDFTool) Description() string {
	return "Extract the plain text of a PDF file on the user's machine."
}

func (t *ReadPDFTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"Path to the PDF file"}},"required":["path"]}`)
}

func (t *ReadPDFTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Path == "" {
		return "", fmt.Errorf("%w: path", ErrMissingArgument)
	}

	f, r, err := pdf.Open(in.Path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return truncate(buf.String(), maxPDFOutput), nil
}
