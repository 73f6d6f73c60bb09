package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mfierros/routina/internal/conversation"
)

var testMessages = []conversation.Message{
	{Role: conversation.RoleSystem, Content: conversation.SystemPrompt},
	{Role: conversation.RoleUser, Content: "what order do I apply these?"},
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		var req struct {
			Model     string                 `json:"model"`
			Messages  []conversation.Message `json:"messages"`
			MaxTokens int                    `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("model = %q, want gpt-4o", req.Model)
		}
		if req.MaxTokens != 500 {
			t.Errorf("max_tokens = %d, want 500", req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[1].Role != conversation.RoleUser {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Cleanser first, then serum."}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "gpt-4o", nil)
	reply, err := client.Complete(context.Background(), testMessages, 500)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Cleanser first, then serum." {
		t.Errorf("reply = %q", reply)
	}
}

func TestCompleteUnexpectedShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty choices", `{"choices":[]}`},
		{"missing content", `{"choices":[{"message":{}}]}`},
		{"not json", `upstream said something odd`},
		{"wrong document", `{"ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			reply, err := NewClient(srv.URL, "gpt-4o", nil).Complete(context.Background(), testMessages, 500)
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if reply != FallbackReply {
				t.Errorf("reply = %q, want fallback", reply)
			}
		})
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "gpt-4o", nil).Complete(context.Background(), testMessages, 500)

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("got %T, want *CallError", err)
	}
	if callErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", callErr.Status)
	}
	if !strings.Contains(callErr.Error(), "503") {
		t.Errorf("error text missing status code: %q", callErr.Error())
	}
	if !strings.Contains(callErr.Detail, "overloaded") {
		t.Errorf("Detail missing upstream body: %q", callErr.Detail)
	}
}

func TestCompleteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL, "gpt-4o", nil).Complete(context.Background(), testMessages, 500)

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("got %T, want *CallError", err)
	}
	if callErr.Status != 0 {
		t.Errorf("Status = %d, want 0 for transport errors", callErr.Status)
	}
}
