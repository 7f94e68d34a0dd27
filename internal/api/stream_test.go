package api

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSSEWriter_SendFormatsEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, ok := newSSEWriter(rec)
	if !ok {
		t.Fatal("expected the recorder to support streaming")
	}

	sse.send("transactions", []string{"a", "b"})

	body := rec.Body.String()
	if !strings.Contains(body, "event: transactions\n") {
		t.Fatalf("expected an event line, got %q", body)
	}
	if !strings.Contains(body, "data: [\"a\",\"b\"]\n\n") {
		t.Fatalf("expected a data line, got %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected the SSE content type, got %q", ct)
	}
}

func TestSSEWriter_ClosedWriterDropsLateSends(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, ok := newSSEWriter(rec)
	if !ok {
		t.Fatal("expected the recorder to support streaming")
	}

	sse.send("withdrawal_requests", []string{"a"})
	before := rec.Body.Len()

	// A subscription callback can race the handler's return; once the
	// writer is closed nothing may touch the ResponseWriter again.
	sse.close()
	sse.send("withdrawal_requests", []string{"b"})

	if rec.Body.Len() != before {
		t.Fatalf("expected no bytes written after close, got %q", rec.Body.String())
	}
}
