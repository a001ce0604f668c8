package yandexgpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token(context.Context) (string, error) { return s.token, s.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer iam-token" {
			t.Errorf("expected Bearer iam-token, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.ModelURI != "gpt://folder-1/yandexgpt/latest" {
			t.Errorf("expected modelUri gpt://folder-1/yandexgpt/latest, got %q", req.ModelURI)
		}
		if req.CompletionOptions.Stream {
			t.Error("expected stream false")
		}
		if req.CompletionOptions.MaxTokens != 700 {
			t.Errorf("expected maxTokens 700, got %d", req.CompletionOptions.MaxTokens)
		}
		if req.CompletionOptions.Temperature != 0.2 {
			t.Errorf("expected temperature 0.2, got %v", req.CompletionOptions.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Text != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"result":{"alternatives":[{"message":{"role":"assistant","text":"call at 14"},"status":"ALTERNATIVE_STATUS_FINAL"}],"usage":{"inputTextTokens":"10","completionTokens":"3","totalTokens":"13"},"modelVersion":"1"}}`)
	}))
	defer server.Close()

	c := NewClient(staticToken{token: "iam-token"}, "folder-1", "", discardLogger())
	c.SetEndpoint(server.URL)

	result, err := c.Complete(context.Background(), []Message{{Role: "system", Text: "sys"}, {Role: "user", Text: "hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "call at 14" {
		t.Errorf("expected 'call at 14', got %q", result)
	}
}

func TestComplete_UnexpectedShapeReturnsDiagnostic(t *testing.T) {
	bodies := map[string]string{
		"no result":          `{"foo":1}`,
		"empty alternatives": `{"result":{"alternatives":[]}}`,
		"no message":         `{"result":{"alternatives":[{"status":"ALTERNATIVE_STATUS_CONTENT_FILTER"}]}}`,
		"no text":            `{"result":{"alternatives":[{"message":{"role":"assistant"}}]}}`,
		"not json":           `<html>oops</html>`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				io.WriteString(w, body)
			}))
			defer server.Close()

			c := NewClient(staticToken{token: "t"}, "f", "", discardLogger())
			c.SetEndpoint(server.URL)

			result, err := c.Complete(context.Background(), []Message{{Role: "user", Text: "hi"}})
			if err != nil {
				t.Fatalf("expected no error for malformed completion, got %v", err)
			}
			if result != DiagnosticPrefix+body {
				t.Errorf("expected diagnostic embedding raw body, got %q", result)
			}
		})
	}
}

func TestComplete_EmptyTextIsReturnedAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"result":{"alternatives":[{"message":{"role":"assistant","text":""}}]}}`)
	}))
	defer server.Close()

	c := NewClient(staticToken{token: "t"}, "f", "", discardLogger())
	c.SetEndpoint(server.URL)

	result, err := c.Complete(context.Background(), []Message{{Role: "user", Text: "hi"}})
	if err != nil || result != "" {
		t.Errorf("expected empty text without error, got %q, %v", result, err)
	}
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"grpcCode":3,"message":"modelUri is invalid"}}`)
	}))
	defer server.Close()

	c := NewClient(staticToken{token: "t"}, "f", "", discardLogger())
	c.SetEndpoint(server.URL)

	_, err := c.Complete(context.Background(), []Message{{Role: "user", Text: "hi"}})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", reqErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "modelUri is invalid") {
		t.Errorf("expected body in error, got %q", err.Error())
	}
}

func TestComplete_TokenFailureSkipsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	tokenErr := errors.New("exchange failed")
	c := NewClient(staticToken{err: tokenErr}, "f", "", discardLogger())
	c.SetEndpoint(server.URL)

	_, err := c.Complete(context.Background(), []Message{{Role: "user", Text: "hi"}})
	if !errors.Is(err, tokenErr) {
		t.Fatalf("expected token error in chain, got %v", err)
	}
	if called {
		t.Error("completion endpoint must not be called without a token")
	}
}

func TestComplete_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(staticToken{token: "t"}, "f", "", discardLogger())
	c.SetEndpoint(url)

	_, err := c.Complete(context.Background(), []Message{{Role: "user", Text: "hi"}})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
}

func TestModelURI(t *testing.T) {
	c := NewClient(staticToken{}, "b1g", "yandexgpt-lite/latest", discardLogger())
	if got := c.ModelURI(); got != "gpt://b1g/yandexgpt-lite/latest" {
		t.Errorf("unexpected model uri %q", got)
	}
}
