package conversation

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/nymia/internal/model/chat"
)

func setupRouter() (*chi.Mux, *MemoryStore) {
	store := NewMemoryStore()
	handler := New(store)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func TestCreateConversation(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/conversation/", strings.NewReader(`{"title":"New Conversation"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var envelope struct {
		Data chat.ConversationCreated `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID == "" || envelope.Data.ClientID == "" {
		t.Fatalf("missing identifiers: %+v", envelope.Data)
	}
}

func TestListNewestFirst(t *testing.T) {
	r, store := setupRouter()
	older := store.Create("older")
	newer := store.Create("newer")

	req := httptest.NewRequest(http.MethodGet, "/conversation/user", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var envelope struct {
		Data []chat.ConversationSummary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(envelope.Data))
	}
	if envelope.Data[0].ID != newer.ID || envelope.Data[1].ID != older.ID {
		t.Fatalf("listing not newest-first: %+v", envelope.Data)
	}
}

func TestDetailUnknownConversation(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/conversation/nope", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestMessageFormTurn(t *testing.T) {
	r, store := setupRouter()
	created := store.Create("t")

	form := url.Values{"content": {"hello stub"}, "context": {""}}
	req := httptest.NewRequest(http.MethodPost, "/conversation/"+created.ID+"/message?has_image_processor=deactivate&has_text_to_voice=deactivate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data []chat.RemoteMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected user+assistant, got %d entries", len(envelope.Data))
	}
	if envelope.Data[1].Sender != "assistant" || envelope.Data[1].AudioURL != "" {
		t.Fatalf("unexpected assistant entry: %+v", envelope.Data[1])
	}
}

func TestMessageTextToVoiceAddsAudioURL(t *testing.T) {
	r, store := setupRouter()
	created := store.Create("t")

	form := url.Values{"content": {"speak up"}}
	req := httptest.NewRequest(http.MethodPost, "/conversation/"+created.ID+"/message?has_text_to_voice=activate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	var envelope struct {
		Data []chat.RemoteMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data[len(envelope.Data)-1].AudioURL == "" {
		t.Fatal("expected an audio_url on the assistant reply")
	}
}

func TestMessageMultipartVoiceTurn(t *testing.T) {
	r, store := setupRouter()
	created := store.Create("t")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("wav-bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/conversation/"+created.ID+"/message", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data []chat.RemoteMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data[0].Content != "[Voice Message]" {
		t.Fatalf("voice turn not recorded as placeholder: %+v", envelope.Data[0])
	}
}

func TestMessageMissingContent(t *testing.T) {
	r, store := setupRouter()
	created := store.Create("t")

	req := httptest.NewRequest(http.MethodPost, "/conversation/"+created.ID+"/message", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
