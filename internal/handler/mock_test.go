package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chatline/internal/account"
	"github.com/hitoshi/chatline/internal/auth"
	"github.com/hitoshi/chatline/internal/conversation"
	"github.com/hitoshi/chatline/internal/middleware"
	"github.com/hitoshi/chatline/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn func(ctx context.Context, in auth.SignupInput) (*model.User, *auth.Issued, error)
	loginFn  func(ctx context.Context, in auth.LoginInput) (*model.User, *auth.Issued, error)
	logoutFn func(ctx context.Context, rawToken string) error
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*model.User, *auth.Issued, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, in auth.LoginInput) (*model.User, *auth.Issued, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, in)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, rawToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, rawToken)
	}
	return nil
}

type mockAccountService struct {
	deactivateFn        func(ctx context.Context, userID int64) error
	deleteAccountFn     func(ctx context.Context, userID int64) error
	usernameAvailableFn func(ctx context.Context, username string) bool
	emailAvailableFn    func(ctx context.Context, email string) bool
	meFn                func(ctx context.Context, userID int64) (*model.User, error)
	updateProfileFn     func(ctx context.Context, userID int64, in account.ProfileInput) (*model.User, error)
	searchFn            func(ctx context.Context, userID int64, query string) ([]model.User, error)
	listOthersFn        func(ctx context.Context, userID int64) ([]model.User, error)
}

func (m *mockAccountService) Deactivate(ctx context.Context, userID int64) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, userID)
	}
	return nil
}

func (m *mockAccountService) DeleteAccount(ctx context.Context, userID int64) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(ctx, userID)
	}
	return nil
}

func (m *mockAccountService) UsernameAvailable(ctx context.Context, username string) bool {
	if m.usernameAvailableFn != nil {
		return m.usernameAvailableFn(ctx, username)
	}
	return true
}

func (m *mockAccountService) EmailAvailable(ctx context.Context, email string) bool {
	if m.emailAvailableFn != nil {
		return m.emailAvailableFn(ctx, email)
	}
	return true
}

func (m *mockAccountService) Me(ctx context.Context, userID int64) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockAccountService) UpdateProfile(ctx context.Context, userID int64, in account.ProfileInput) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, in)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockAccountService) Search(ctx context.Context, userID int64, query string) ([]model.User, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, userID, query)
	}
	return nil, nil
}

func (m *mockAccountService) ListOthers(ctx context.Context, userID int64) ([]model.User, error) {
	if m.listOthersFn != nil {
		return m.listOthersFn(ctx, userID)
	}
	return nil, nil
}

type mockConversationService struct {
	listFn        func(ctx context.Context, userID int64) ([]model.ConversationSummary, error)
	createFn      func(ctx context.Context, userID, otherUserID int64) (*model.Discussion, bool, error)
	getMessagesFn func(ctx context.Context, discussionID, userID, after int64) (*conversation.Page, error)
	sendFn        func(ctx context.Context, discussionID, userID int64, in conversation.SendInput) (*model.Message, error)
}

func (m *mockConversationService) List(ctx context.Context, userID int64) ([]model.ConversationSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockConversationService) Create(ctx context.Context, userID, otherUserID int64) (*model.Discussion, bool, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, otherUserID)
	}
	return nil, false, nil
}

func (m *mockConversationService) GetMessages(ctx context.Context, discussionID, userID, after int64) (*conversation.Page, error) {
	if m.getMessagesFn != nil {
		return m.getMessagesFn(ctx, discussionID, userID, after)
	}
	return &conversation.Page{}, nil
}

func (m *mockConversationService) Send(ctx context.Context, discussionID, userID int64, in conversation.SendInput) (*model.Message, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, discussionID, userID, in)
	}
	return nil, nil
}

type mockSessionResolver struct {
	users map[string]*model.User
}

func (m *mockSessionResolver) Resolve(_ context.Context, rawToken string) *model.User {
	return m.users[rawToken]
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ AccountLifecycleInterface = (*mockAccountService)(nil)
var _ AvailabilityServiceInterface = (*mockAccountService)(nil)
var _ UserServiceInterface = (*mockAccountService)(nil)
var _ ConversationServiceInterface = (*mockConversationService)(nil)
var _ middleware.SessionResolver = (*mockSessionResolver)(nil)

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ AccountLifecycleInterface = (*account.Service)(nil)
var _ AvailabilityServiceInterface = (*account.Service)(nil)
var _ UserServiceInterface = (*account.Service)(nil)
var _ ConversationServiceInterface = (*conversation.Service)(nil)
var _ middleware.SessionResolver = (*auth.SessionStore)(nil)

// --- ヘルパー ---

// withUser はリクエストコンテキストに認証済みユーザーを注入する。
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorBody はエラーレスポンスのボディをデコードする。
func decodeErrorBody(t *testing.T, resp *http.Response) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}
