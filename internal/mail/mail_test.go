// ABOUTME: Tests for challenge code delivery via SendGrid and the debug fallback
// ABOUTME: Uses a local httptest server standing in for the SendGrid API

package mail

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewSender_FallsBackToDebug(t *testing.T) {
	sender := NewSender("", "noreply@example.com", slog.New(slog.DiscardHandler))

	if _, ok := sender.(*DebugSender); !ok {
		t.Fatalf("NewSender(\"\") = %T, want *DebugSender", sender)
	}
	if err := sender.SendChallengeCode(context.Background(), "a@x.com", "12345678"); err != nil {
		t.Errorf("SendChallengeCode() error = %v", err)
	}
}

func TestNewSender_WithKeyUsesSendGrid(t *testing.T) {
	sender := NewSender("SG.key", "noreply@example.com", slog.New(slog.DiscardHandler))

	if _, ok := sender.(*SendGridSender); !ok {
		t.Fatalf("NewSender(key) = %T, want *SendGridSender", sender)
	}
}

func TestSendGridSender_SendChallengeCode(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender("SG.test-key", "noreply@example.com")
	sender.baseURL = srv.URL

	if err := sender.SendChallengeCode(context.Background(), "grace@example.com", "12345678"); err != nil {
		t.Fatalf("SendChallengeCode() error = %v", err)
	}

	if gotAuth != "Bearer SG.test-key" {
		t.Errorf("Authorization = %q, want Bearer SG.test-key", gotAuth)
	}
	if gotPath != "/v3/mail/send" {
		t.Errorf("path = %q, want /v3/mail/send", gotPath)
	}

	var payload sendRequest
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(payload.Personalizations) != 1 || len(payload.Personalizations[0].To) != 1 {
		t.Fatalf("payload personalizations = %+v", payload.Personalizations)
	}
	if to := payload.Personalizations[0].To[0].Email; to != "grace@example.com" {
		t.Errorf("to = %q, want grace@example.com", to)
	}
	if payload.From.Email != "noreply@example.com" {
		t.Errorf("from = %q", payload.From.Email)
	}
	if payload.Subject != "Login token for the modern backend API" {
		t.Errorf("subject = %q", payload.Subject)
	}
	if len(payload.Content) != 1 || !strings.Contains(payload.Content[0].Value, "12345678") {
		t.Errorf("content = %+v, want the code in the body", payload.Content)
	}
}

func TestSendGridSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sender := NewSendGridSender("SG.bad-key", "noreply@example.com")
	sender.baseURL = srv.URL

	err := sender.SendChallengeCode(context.Background(), "a@x.com", "12345678")
	if err == nil {
		t.Fatal("SendChallengeCode() should fail on a non-2xx response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want the status code included", err)
	}
}
