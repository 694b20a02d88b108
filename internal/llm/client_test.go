package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opensource-finance/capintel/internal/domain"
)

func testConfig(baseURL string) domain.LLMConfig {
	return domain.LLMConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		Model:          "mistralai/mistral-7b-instruct",
		Temperature:    0,
		TopP:           1,
		MaxTokens:      350,
		TimeoutSeconds: 5,
		AppTitle:       "CapIntel Explanations",
	}
}

func completionBody(content string) string {
	quoted, _ := json.Marshal(content)
	return `{"choices":[{"message":{"content":` + string(quoted) + `}}]}`
}

func TestChatSuccess(t *testing.T) {
	var gotReq chatRequest
	var gotAuth, gotTitle, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("  Your application was declined.  ")))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	got, err := client.Chat(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Your application was declined." {
		t.Errorf("expected trimmed content, got %q", got)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotTitle != "CapIntel Explanations" {
		t.Errorf("expected X-Title header, got %q", gotTitle)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}

	if gotReq.Model != "mistralai/mistral-7b-instruct" {
		t.Errorf("unexpected model: %q", gotReq.Model)
	}
	if gotReq.Temperature != 0 || gotReq.TopP != 1 || gotReq.MaxTokens != 350 {
		t.Errorf("unexpected sampling params: %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 ||
		gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "system text" ||
		gotReq.Messages[1].Role != "user" || gotReq.Messages[1].Content != "user text" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestChatTrailingSlashBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(completionBody("ok")))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL + "/"))
	if _, err := client.Chat(context.Background(), "s", "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChatStatusError(t *testing.T) {
	longBody := strings.Repeat("x", 2000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(longBody))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), "s", "u")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", statusErr.StatusCode)
	}
	if len(statusErr.Body) != maxErrorBodyBytes {
		t.Errorf("expected body truncated to %d bytes, got %d", maxErrorBodyBytes, len(statusErr.Body))
	}
}

func TestChatUnexpectedSchema(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"MalformedJSON", `{"choices": [`},
		{"NoChoices", `{"choices": []}`},
		{"NullContent", `{"choices":[{"message":{"content":null}}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			_, err := client.Chat(context.Background(), "s", "u")
			if !errors.Is(err, ErrUnexpectedSchema) {
				t.Errorf("expected ErrUnexpectedSchema, got %v", err)
			}
		})
	}
}

func TestChatEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("   \n\t ")))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), "s", "u")
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
}

func TestChatTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), "s", "u")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

func TestChatContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(ctx, "s", "u")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}
