package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/chatline/internal/model"
	"github.com/hitoshi/chatline/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn         func(ctx context.Context, id int64) (*model.User, error)
	findByLoginFn      func(ctx context.Context, login string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	existsByEmailFn    func(ctx context.Context, email string) (bool, error)
	createFn           func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	if m.findByLoginFn != nil {
		return m.findByLoginFn(ctx, login)
	}
	return nil, nil
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _ int64, _ repository.ProfileUpdate) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Search(_ context.Context, _ string, _ int) ([]model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) ListOthers(_ context.Context, _ int64, _ int) ([]model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ int64) error {
	return nil
}

type mockSessionRepo struct {
	createFn            func(ctx context.Context, session *model.Session) error
	findActiveFn        func(ctx context.Context, tokenHash string) (*repository.SessionWithUser, error)
	deleteByTokenHashFn func(ctx context.Context, tokenHash string) error
	deleteByUserIDFn    func(ctx context.Context, userID int64) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*repository.SessionWithUser, error) {
	if m.findActiveFn != nil {
		return m.findActiveFn(ctx, tokenHash)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if m.deleteByTokenHashFn != nil {
		return m.deleteByTokenHashFn(ctx, tokenHash)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// memSessionRepo はハッシュをキーにセッションを保持するインメモリ実装。
type memSessionRepo struct {
	mu       sync.Mutex
	users    map[int64]model.User
	sessions map[string]model.Session
}

func newMemSessionRepo(users ...model.User) *memSessionRepo {
	r := &memSessionRepo{
		users:    make(map[int64]model.User),
		sessions: make(map[string]model.Session),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memSessionRepo) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.TokenHash] = *session
	return nil
}

func (r *memSessionRepo) FindActiveByTokenHash(_ context.Context, tokenHash string) (*repository.SessionWithUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	user, ok := r.users[session.UserID]
	if !ok {
		return nil, nil
	}
	return &repository.SessionWithUser{Session: session, User: user}, nil
}

func (r *memSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenHash)
	return nil
}

func (r *memSessionRepo) DeleteByUserID(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, hash)
		}
	}
	return nil
}

type mockSessionIssuer struct {
	createFn  func(ctx context.Context, userID int64) (string, time.Time, error)
	destroyFn func(ctx context.Context, rawToken string) error
}

func (m *mockSessionIssuer) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID)
	}
	return "raw-token", time.Now().Add(time.Hour), nil
}

func (m *mockSessionIssuer) Destroy(ctx context.Context, rawToken string) error {
	if m.destroyFn != nil {
		return m.destroyFn(ctx, rawToken)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.SessionRepository = (*memSessionRepo)(nil)
var _ SessionIssuer = (*mockSessionIssuer)(nil)
var _ SessionIssuer = (*SessionStore)(nil)
