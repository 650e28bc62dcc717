package handler

import (
	"embed"
	"log/slog"
	"net/http"
)

//go:embed pages/*.html
var pagesFS embed.FS

// PageHandler は埋め込みのHTMLシェルを返すハンドラー。
// 画面の描画はクライアント側が行い、サーバーは最小限のシェルのみを返す。
type PageHandler struct {
	fs embed.FS
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler() *PageHandler {
	return &PageHandler{fs: pagesFS}
}

// Home はトップページを返す。
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "pages/index.html")
}

// Login はログインページを返す。
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "pages/login.html")
}

// Register は新規登録ページを返す。
func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "pages/register.html")
}

// Chat は会話ページを返す。/chat 配下の全パスで同じシェルを返す。
func (h *PageHandler) Chat(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "pages/chat.html")
}

func (h *PageHandler) serve(w http.ResponseWriter, name string) {
	body, err := h.fs.ReadFile(name)
	if err != nil {
		slog.Error("failed to read embedded page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
