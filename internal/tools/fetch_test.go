package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchURL_ExtractsVisibleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>T</title><style>body{}</style></head>
<body><h1>Hello</h1><script>var x = 1;</script><p>  Go   is fun. </p></body></html>`))
	}))
	defer srv.Close()

	tool := NewFetchURLTool()
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"`+srv.URL+`"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "Hello\nGo is fun." {
		t.Errorf("output = %q", out)
	}
}

func TestFetchURL_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("raw body"))
	}))
	defer srv.Close()

	out, err := NewFetchURLTool().Execute(context.Background(), json.RawMessage(`{"url":"`+srv.URL+`"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "raw body" {
		t.Errorf("output = %q", out)
	}
}

func TestFetchURL_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tool := NewFetchURLTool()
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"`+srv.URL+`"}`)); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("404 error = %v", err)
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"file:///etc/passwd"}`)); err == nil {
		t.Error("file:// url accepted")
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("missing url error = %v", err)
	}
}

func TestReadPDF_Errors(t *testing.T) {
	tool := &ReadPDFTool{}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("missing path error = %v", err)
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"/nonexistent/file.pdf"}`)); err == nil {
		t.Error("nonexistent pdf returned nil error")
	}
}
