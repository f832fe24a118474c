package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestDocumentSendsUserAgentAndQuery(t *testing.T) {
	t.Parallel()

	var gotUA, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("cbIdx")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><p class="x">안녕하세요</p></body></html>`))
	}))
	defer server.Close()

	client := New(Config{UserAgent: "test-agent"}, server.Client(), nil)
	doc, err := client.Document(context.Background(), server.URL+"/list?pageIndex=1", url.Values{"cbIdx": {"86"}})
	if err != nil {
		t.Fatalf("Document error: %v", err)
	}

	if gotUA != "test-agent" {
		t.Fatalf("unexpected user agent: %q", gotUA)
	}
	if gotQuery != "86" {
		t.Fatalf("expected query to be merged, got %q", gotQuery)
	}
	if text := doc.Find("p.x").Text(); text != "안녕하세요" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestDoReturnsStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{}, server.Client(), nil)
	_, _, err := client.Do(context.Background(), Request{URL: server.URL})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
}

func TestDoHonoursTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := New(Config{Timeout: 50 * time.Millisecond}, nil, nil)
	start := time.Now()
	if _, _, err := client.Do(context.Background(), Request{URL: server.URL}); err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("request was not bounded by timeout: %v", elapsed)
	}
}

func TestDelayPacesRequests(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(Config{Delay: 100 * time.Millisecond}, server.Client(), nil)
	start := time.Now()
	for i := 0; i < 3; i++ {
		var v map[string]any
		if err := client.JSON(context.Background(), server.URL, nil, nil, &v); err != nil {
			t.Fatalf("JSON error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Fatalf("expected requests to be paced, took %v", elapsed)
	}
}
