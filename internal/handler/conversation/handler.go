package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zhouzirui/nymia/internal/model/chat"
	"github.com/zhouzirui/nymia/pkg/utils"
)

// voicePlaceholder 语音消息在历史记录中的占位内容。
const voicePlaceholder = "[Voice Message]"

// Handler 会话 REST 接口的 HTTP 处理器，供本地联调使用。
type Handler struct {
	store *MemoryStore
}

// New 创建会话处理器。
func New(store *MemoryStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册会话相关的路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/conversation", func(r chi.Router) {
		r.Get("/user", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{conversationID}", h.handleDetail)
		r.Post("/{conversationID}/message", h.handleMessage)
	})
}

// handleList 返回当前调用方的全部会话，最新的在最前。
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondData(w, http.StatusOK, h.store.List())
}

// handleCreate 创建新会话并返回 id 与 client_id。
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == "" {
		payload.Title = "New Conversation"
	}

	utils.RespondData(w, http.StatusCreated, h.store.Create(payload.Title))
}

// handleDetail 返回单个会话的消息历史。
func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	messages, err := h.store.Messages(conversationID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	utils.RespondData(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleMessage 接收一条文本或语音消息并返回追加后的消息列表。
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	textToVoice := r.URL.Query().Get("has_text_to_voice") == "activate"

	content, err := extractContent(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := chat.RemoteMessage{Sender: string(chat.SenderUser), Content: content}
	assistant := chat.RemoteMessage{
		Sender:  string(chat.SenderAssistant),
		Content: replyFor(content),
	}
	if textToVoice {
		assistant.AudioURL = "https://audio.stub.local/tts/" + uuid.NewString() + ".mp3"
	}

	messages, err := h.store.AppendTurn(conversationID, user, assistant)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			utils.RespondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondData(w, http.StatusOK, messages)
}

// extractContent 从表单或 multipart 请求体中取出消息内容。
func extractContent(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
			return "", fmt.Errorf("failed to parse multipart form: %w", err)
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		file, _, err := r.FormFile("audio")
		if err != nil {
			return "", errors.New("multipart body is missing the audio field")
		}
		file.Close()
		return voicePlaceholder, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("failed to parse form: %w", err)
	}
	content := r.PostFormValue("content")
	if content == "" {
		return "", errors.New("content is required")
	}
	return content, nil
}

// replyFor 生成联调用的固定回复。
func replyFor(content string) string {
	if content == voicePlaceholder {
		return "I received your voice message."
	}
	return fmt.Sprintf("You said: %s", content)
}
