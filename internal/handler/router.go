package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chatline/internal/metrics"
	"github.com/hitoshi/chatline/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// アカウント
	AccountService AccountLifecycleInterface
	Availability   AvailabilityServiceInterface
	UserService    UserServiceInterface

	// 会話
	ConversationService ConversationServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS → (ページ: SessionGuard | API: Session → RateLimit(General))
//
// サインアップ・ログイン・ログアウトと利用可否チェックはセッション不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AccountService, deps.AuthConfig)
	availabilityHandler := NewAvailabilityHandler(deps.Availability)
	conversationHandler := NewConversationHandler(deps.ConversationService)
	userHandler := NewUserHandler(deps.UserService)
	pageHandler := NewPageHandler()

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- ページ（Cookieの有無のみで事前チェック） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionGuard(deps.AuthConfig.CookieName))

		r.Get(middleware.PathHome, pageHandler.Home)
		r.Get(middleware.PathLogin, pageHandler.Login)
		r.Get(middleware.PathRegister, pageHandler.Register)
		r.Get(middleware.PathChat, pageHandler.Chat)
		r.Get(middleware.PathChat+"/*", pageHandler.Chat)
	})

	// --- 認証不要のAPI ---
	r.Post("/auth/signup", authHandler.Signup)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)
	r.Post("/username/check", availabilityHandler.CheckUsername)
	r.Post("/email/check", availabilityHandler.CheckEmail)

	// --- 認証が必要なAPI ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver, deps.AuthConfig.CookieName))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/deactivate", authHandler.Deactivate)
		r.Post("/auth/delete-account", authHandler.DeleteAccount)

		// 会話
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.ListConversations)
			r.Post("/", conversationHandler.CreateConversation)

			r.Route("/{id}", func(r chi.Router) {
				// GET /conversations/{id}?after=N - 差分取得
				r.Get("/", conversationHandler.GetMessages)
				// POST /conversations/{id} - 送信専用レート制限を追加
				r.With(deps.RateLimiter.SendMiddleware()).Post("/", conversationHandler.SendMessage)
			})
		})

		// ユーザー
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Get("/search", userHandler.SearchUsers)
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)
		})
	})

	return r
}
