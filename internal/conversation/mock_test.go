package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/chatline/internal/model"
	"github.com/hitoshi/chatline/internal/repository"
)

type mockDiscussionRepo struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.Discussion, error)
	createIfAbsentFn func(ctx context.Context, a, b int64) (*model.Discussion, bool, error)
	listByUserFn     func(ctx context.Context, userID int64) ([]model.ConversationSummary, error)
}

func (m *mockDiscussionRepo) FindByID(ctx context.Context, id int64) (*model.Discussion, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDiscussionRepo) FindByPair(_ context.Context, _, _ int64) (*model.Discussion, error) {
	return nil, nil
}

func (m *mockDiscussionRepo) CreateIfAbsent(ctx context.Context, a, b int64) (*model.Discussion, bool, error) {
	if m.createIfAbsentFn != nil {
		return m.createIfAbsentFn(ctx, a, b)
	}
	return nil, false, nil
}

func (m *mockDiscussionRepo) ListByUser(ctx context.Context, userID int64) ([]model.ConversationSummary, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id int64) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByLogin(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) ExistsByUsername(_ context.Context, _ string) (bool, error) {
	return false, nil
}
func (m *mockUserRepo) ExistsByEmail(_ context.Context, _ string) (bool, error) {
	return false, nil
}
func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error {
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
func (m *mockUserRepo) DeleteByID(_ context.Context, _ int64) error { return nil }

// memMessageRepo はIDを単調増加で採番するインメモリのMessageRepository。
type memMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages []model.Message
	createFn func(ctx context.Context, msg *model.Message) error
}

func (m *memMessageRepo) add(discussionID, senderID int64, content string) model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg := model.Message{ID: m.nextID, DiscussionID: discussionID, SenderID: senderID, Content: content, CreatedAt: time.Now()}
	m.messages = append(m.messages, msg)
	return msg
}

func (m *memMessageRepo) ListLatest(_ context.Context, discussionID int64, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msg := range m.messages {
		if msg.DiscussionID == discussionID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]model.Message{}, out...), nil
}

func (m *memMessageRepo) ListAfter(_ context.Context, discussionID, after int64, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Message{}
	for _, msg := range m.messages {
		if msg.DiscussionID == discussionID && msg.ID > after && len(out) < limit {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	if m.createFn != nil {
		return m.createFn(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return nil
}

type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(s string) string { return s }

// --- compile-time interface checks ---
var _ repository.DiscussionRepository = (*mockDiscussionRepo)(nil)
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.MessageRepository = (*memMessageRepo)(nil)
