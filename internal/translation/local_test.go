package translation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLocalProviderTranslate(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotAuth string
	var gotBody localChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  비트코인 급등  "}},
			},
		})
	}))
	defer server.Close()

	provider := NewLocalProvider(server.URL+"/v1", "google/gemma-3-27b", "secret", 5*time.Second)

	resp, err := provider.Translate(context.Background(), TranslateRequest{
		Text:       "Bitcoin surges",
		SourceLang: "en",
		TargetLang: "ko",
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	if resp.Text != "비트코인 급등" {
		t.Fatalf("unexpected translation: %q", resp.Text)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.Model != "google/gemma-3-27b" {
		t.Fatalf("unexpected model: %q", gotBody.Model)
	}
	if gotBody.MaxTokens != 1000 {
		t.Fatalf("unexpected max_tokens: %d", gotBody.MaxTokens)
	}
	if gotBody.Temperature != 0.3 {
		t.Fatalf("unexpected temperature: %v", gotBody.Temperature)
	}
	if len(gotBody.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(gotBody.Messages))
	}
	prompt := gotBody.Messages[0].Content
	if !strings.Contains(prompt, "English text to Korean") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Bitcoin surges") {
		t.Fatalf("expected prompt to end with the source text: %q", prompt)
	}
}

func TestLocalProviderSurfacesEndpointErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model not loaded"},
		})
	}))
	defer server.Close()

	provider := NewLocalProvider(server.URL+"/v1", "", "", 5*time.Second)

	_, err := provider.Translate(context.Background(), TranslateRequest{Text: "hello", TargetLang: "ko"})
	if err == nil {
		t.Fatalf("expected endpoint error")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected endpoint message in error, got %v", err)
	}
}

func TestLocalProviderRejectsEmptyResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	provider := NewLocalProvider(server.URL+"/v1", "", "", 5*time.Second)

	if _, err := provider.Translate(context.Background(), TranslateRequest{Text: "hello", TargetLang: "ko"}); err == nil {
		t.Fatalf("expected missing choices to error")
	}
}

func TestChatCompletionsURL(t *testing.T) {
	t.Parallel()

	if got := chatCompletionsURL("http://127.0.0.1:8000/v1"); got != "http://127.0.0.1:8000/v1/chat/completions" {
		t.Fatalf("unexpected url: %q", got)
	}
	if got := chatCompletionsURL("http://127.0.0.1:8000/v1/chat/completions"); got != "http://127.0.0.1:8000/v1/chat/completions" {
		t.Fatalf("unexpected url: %q", got)
	}
}
