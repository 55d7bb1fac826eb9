package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/nymia/internal/handler/conversation"
	middlewarePkg "github.com/zhouzirui/nymia/internal/middleware"
	"github.com/zhouzirui/nymia/pkg/utils"
)

// NewRouter wires the stub backend routes. apiKey is the bearer token the
// stub accepts; an empty key disables the auth check.
func NewRouter(store *conversation.MemoryStore, apiKey string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	if apiKey != "" {
		r.Use(middlewarePkg.RequireBearer(apiKey))
	}

	conversation.New(store).RegisterRoutes(r)

	// 凭证探活端点，客户端登录前会先访问它。
	r.Get("/profile/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondData(w, http.StatusOK, map[string]string{"name": "stub-profile"})
	})

	return r
}
