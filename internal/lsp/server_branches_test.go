package lsp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/r9s-ai/reindent/internal/reindent"
)

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

// splitErrWriter succeeds once (header), then fails (body).
type splitErrWriter struct{ calls int }

func (w *splitErrWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.calls == 1 {
		return len(p), nil
	}
	return 0, errors.New("body write failed")
}

func TestHandle_InitializedAndExitWithoutShutdown(t *testing.T) {
	s := newTestServer(strings.NewReader(""), io.Discard)

	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "initialized"}); err != nil {
		t.Fatalf("initialized should be no-op: %v", err)
	}
	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "exit"}); !errors.Is(err, io.EOF) {
		t.Fatalf("exit should return EOF, got: %v", err)
	}
}

func TestHandle_UnknownMethod(t *testing.T) {
	var out bytes.Buffer
	s := newTestServer(strings.NewReader(""), &out)

	// With ID -> reply with result:null
	rawID := json.RawMessage("10")
	if err := s.handle(inboundMessage{JSONRPC: "2.0", ID: &rawID, Method: "custom/method"}); err != nil {
		t.Fatalf("handle unknown with id: %v", err)
	}
	msgs := readAllLSPMessages(t, out.Bytes())
	if len(msgs) != 1 {
		t.Fatalf("expected one reply for unknown request, got %d", len(msgs))
	}
	if v, ok := msgs[0]["result"]; !ok || v != nil {
		t.Fatalf("expected null result for unknown request: %+v", msgs[0])
	}

	// Without ID -> notification style, no output.
	out.Reset()
	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "custom/notify"}); err != nil {
		t.Fatalf("handle unknown notify: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output for unknown notification, got %d bytes", out.Len())
	}
}

func TestHandle_DidChangeBranches(t *testing.T) {
	var out bytes.Buffer
	s := newTestServer(strings.NewReader(""), &out)

	// Invalid params should return error.
	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "textDocument/didChange", Params: json.RawMessage(`{"oops":`)}); err == nil {
		t.Fatalf("expected unmarshal error for malformed didChange params")
	}

	uri := "file:///tmp/change.ts"
	s.docs[uri] = "a {}"
	params, err := json.Marshal(didChangeParams{
		TextDocument: versionedTextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		t.Fatalf("marshal didChange empty: %v", err)
	}

	// Empty changes -> no diagnostics publish.
	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "textDocument/didChange", Params: params}); err != nil {
		t.Fatalf("didChange with empty changes should be no-op: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output for empty didChange changes, got %d bytes", out.Len())
	}

	params, err = json.Marshal(didChangeParams{
		TextDocument: versionedTextDocumentIdentifier{URI: uri},
		ContentChanges: []textDocumentContentChangeEvent{
			{Text: "stale"},
			{Text: "a {\n  b\n}\n"},
		},
	})
	if err != nil {
		t.Fatalf("marshal didChange: %v", err)
	}
	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "textDocument/didChange", Params: params}); err != nil {
		t.Fatalf("didChange should publish diagnostics: %v", err)
	}
	if got := s.docs[uri]; got != "a {\n  b\n}\n" {
		t.Fatalf("expected doc updated from last content change, got: %q", got)
	}
	msgs := readAllLSPMessages(t, out.Bytes())
	if len(msgs) != 1 || msgs[0]["method"] != "textDocument/publishDiagnostics" {
		t.Fatalf("expected one diagnostics publish after didChange, got: %+v", msgs)
	}
	p, _ := msgs[0]["params"].(map[string]any)
	if diags, _ := p["diagnostics"].([]any); len(diags) != 0 {
		t.Fatalf("expected no diagnostics for well indented text, got: %+v", diags)
	}
}

func TestHandle_DidCloseClearsDiagnostics(t *testing.T) {
	var out bytes.Buffer
	s := newTestServer(strings.NewReader(""), &out)
	uri := "file:///tmp/close.ts"

	closeParams := json.RawMessage(`{"textDocument":{"uri":"` + uri + `"}}`)
	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "textDocument/didClose", Params: closeParams}); err != nil {
		t.Fatalf("didClose of unknown document: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output for unknown document close, got %d bytes", out.Len())
	}

	s.docs[uri] = "a {\nb\n}\n"
	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "textDocument/didClose", Params: closeParams}); err != nil {
		t.Fatalf("didClose: %v", err)
	}
	if _, ok := s.docs[uri]; ok {
		t.Fatalf("expected document to be dropped")
	}
	msgs := readAllLSPMessages(t, out.Bytes())
	if len(msgs) != 1 || msgs[0]["method"] != "textDocument/publishDiagnostics" {
		t.Fatalf("expected diagnostics reset, got: %+v", msgs)
	}
	p, _ := msgs[0]["params"].(map[string]any)
	if diags, ok := p["diagnostics"].([]any); !ok || len(diags) != 0 {
		t.Fatalf("expected empty diagnostics list, got: %+v", p["diagnostics"])
	}

	if err := s.handle(inboundMessage{JSONRPC: "2.0", Method: "textDocument/didClose", Params: json.RawMessage(`[`)}); err == nil {
		t.Fatalf("expected unmarshal error for malformed didClose params")
	}
}

func TestRun_InvalidJSONPayloadContinues(t *testing.T) {
	var in bytes.Buffer
	writeLSPMessage(&in, json.RawMessage(`{`)) // malformed JSON payload
	writeLSPMessage(&in, map[string]any{
		"jsonrpc": "2.0",
		"id":      11,
		"method":  "initialize",
		"params":  map[string]any{},
	})

	core, logs := observer.New(zapcore.DebugLevel)
	var out bytes.Buffer
	s := NewServer(&in, &out, zap.New(core), reindent.DefaultOptions())
	if err := s.Run(); err != nil {
		t.Fatalf("Run should ignore invalid JSON and continue, got: %v", err)
	}
	msgs := readAllLSPMessages(t, out.Bytes())
	if len(msgs) != 1 || msgs[0]["id"] == nil {
		t.Fatalf("expected initialize response after malformed payload, got: %+v", msgs)
	}
	if logs.FilterMessage("invalid JSON-RPC payload").Len() != 1 {
		t.Fatalf("expected malformed payload to be logged, got: %+v", logs.All())
	}
}

func TestRun_HandlerErrorIsLogged(t *testing.T) {
	var in bytes.Buffer
	writeLSPMessage(&in, map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/didOpen",
		"params":  "not an object",
	})

	core, logs := observer.New(zapcore.DebugLevel)
	s := NewServer(&in, io.Discard, zap.New(core), reindent.DefaultOptions())
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	entries := logs.FilterMessage("handle request failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected handler failure to be logged, got: %+v", logs.All())
	}
	if entries[0].ContextMap()["method"] != "textDocument/didOpen" {
		t.Fatalf("unexpected log fields: %+v", entries[0].ContextMap())
	}
}

func TestRun_MissingContentLength(t *testing.T) {
	s := newTestServer(strings.NewReader("X-Other: 1\r\n\r\n{}"), io.Discard)
	if err := s.Run(); err == nil || !strings.Contains(err.Error(), "missing Content-Length") {
		t.Fatalf("expected missing Content-Length error, got: %v", err)
	}

	s = newTestServer(strings.NewReader("Content-Length: abc\r\n\r\n"), io.Discard)
	if err := s.Run(); err == nil || !strings.Contains(err.Error(), "invalid Content-Length") {
		t.Fatalf("expected invalid Content-Length error, got: %v", err)
	}
}

func TestReplyAndReplyError_NilIDNoOutput(t *testing.T) {
	var out bytes.Buffer
	s := NewServer(strings.NewReader(""), &out, nil, reindent.DefaultOptions())
	if err := s.reply(nil, map[string]any{"ok": true}); err != nil {
		t.Fatalf("reply nil id should no-op: %v", err)
	}
	if err := s.replyError(nil, -32600, "bad request"); err != nil {
		t.Fatalf("replyError nil id should no-op: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output when id is nil, got %d bytes", out.Len())
	}
}

func TestWriteMessage_ErrorPaths(t *testing.T) {
	if err := writeMessage(io.Discard, map[string]any{"bad": func() {}}); err == nil {
		t.Fatalf("expected marshal error")
	}

	if err := writeMessage(errWriter{}, map[string]any{"ok": true}); err == nil {
		t.Fatalf("expected header write error")
	}

	w := &splitErrWriter{}
	if err := writeMessage(w, map[string]any{"ok": true}); err == nil {
		t.Fatalf("expected body write error")
	}
}
