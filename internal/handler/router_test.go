package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/nymia/internal/handler"
	"github.com/zhouzirui/nymia/internal/handler/conversation"
	"github.com/zhouzirui/nymia/internal/identity"
	model "github.com/zhouzirui/nymia/internal/model/chat"
	chatservice "github.com/zhouzirui/nymia/internal/service/chat"
	"github.com/zhouzirui/nymia/internal/transport"
)

const stubKey = "stub-api-key"

func startStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler.NewRouter(conversation.NewMemoryStore(), stubKey))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterRejectsMissingBearer(t *testing.T) {
	srv := startStub(t)

	resp, err := http.Get(srv.URL + "/conversation/user")
	if err != nil {
		t.Fatalf("request err: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestProfileProbe(t *testing.T) {
	srv := startStub(t)

	api := transport.New(srv.URL, stubKey)
	if _, err := api.Get(context.Background(), "/profile/"); err != nil {
		t.Fatalf("profile probe err: %v", err)
	}

	bad := transport.New(srv.URL, "wrong-key")
	if _, err := bad.Get(context.Background(), "/profile/"); err == nil {
		t.Fatal("expected rejection with wrong key")
	}
}

// Full loop: resolve a fresh session against the stub, send a turn, restart
// with the persisted client id, and observe the same conversation again.
func TestClientSessionAgainstStub(t *testing.T) {
	srv := startStub(t)
	ctx := context.Background()
	ids := identity.NewMemoryStore()

	first := chatservice.NewService(transport.New(srv.URL, stubKey), ids)
	first.Initialize(ctx)
	if err := first.Err(); err != nil {
		t.Fatalf("initialize err: %v", err)
	}
	boundID := first.ConversationID()
	if boundID == "" {
		t.Fatal("no conversation bound")
	}
	if _, ok := ids.Load(); !ok {
		t.Fatal("client id not persisted after creation")
	}

	first.Send(ctx, "hello stub")
	if err := first.Err(); err != nil {
		t.Fatalf("send err: %v", err)
	}
	messages := first.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected user+assistant, got %d", len(messages))
	}
	if messages[1].Sender != model.SenderAssistant {
		t.Fatalf("second entry is not the assistant: %+v", messages[1])
	}

	// Simulated restart: a new service with the same identity store must
	// reattach to the existing conversation and hydrate its history.
	second := chatservice.NewService(transport.New(srv.URL, stubKey), ids)
	second.Initialize(ctx)
	if err := second.Err(); err != nil {
		t.Fatalf("re-initialize err: %v", err)
	}
	if got := second.ConversationID(); got != boundID {
		t.Fatalf("rebound to %q, want %q", got, boundID)
	}
	if got := len(second.Messages()); got != 2 {
		t.Fatalf("history not hydrated, got %d messages", got)
	}
}
