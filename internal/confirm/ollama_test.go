package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaConfirm_SimplePath(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "  Yes, clearly.  ", Done: true})
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "moondream", 5*time.Second, 0)
	res, err := c.Confirm(context.Background(), []byte{0xff, 0xd8}, "Is there a fight? Answer yes or no.")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if res.Text != "yes, clearly." {
		t.Errorf("expected lowercased trimmed text, got %q", res.Text)
	}
	if res.Latency <= 0 {
		t.Errorf("latency must be recorded, got %v", res.Latency)
	}

	if got.Model != "moondream" || got.Stream {
		t.Errorf("request wrong: model=%q stream=%v", got.Model, got.Stream)
	}
	if len(got.Images) != 1 || got.Images[0] == "" {
		t.Errorf("expected one base64 image, got %v", got.Images)
	}
	if got.Options.Temperature != 0.1 || got.Options.NumPredict != 50 {
		t.Errorf("decoding options wrong: %+v", got.Options)
	}
}

func TestOllamaConfirm_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "moondream", 5*time.Second, 0)
	_, err := c.Confirm(context.Background(), []byte{1}, "prompt")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOllamaConfirm_SlowServerIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "moondream", 20*time.Millisecond, 0)
	_, err := c.Confirm(context.Background(), []byte{1}, "prompt")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestOllamaConfirm_ConnectionRefusedIsUnavailable(t *testing.T) {
	// A closed server gives a connection error rather than a timeout.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewOllama(srv.URL, "moondream", time.Second, 0)
	_, err := c.Confirm(context.Background(), []byte{1}, "prompt")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOllamaConfirm_OversizedResponseRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 256))
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "moondream", time.Second, 64)
	_, err := c.Confirm(context.Background(), []byte{1}, "prompt")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for oversized response, got %v", err)
	}
}

func TestOllamaAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "moondream", time.Second, 0)
	if !c.Available(context.Background()) {
		t.Errorf("expected available against a healthy server")
	}

	srv.Close()
	if c.Available(context.Background()) {
		t.Errorf("expected unavailable after the server is gone")
	}
}

func TestEncodeContent_UnsupportedType(t *testing.T) {
	if _, err := encodeContent(42); err == nil {
		t.Fatalf("expected error for unsupported content type")
	}
}
