package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/mq"
	"SocialChat/model"
	"SocialChat/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var serviceLoggerOnce sync.Once

func initServiceTestLogger() {
	serviceLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
}

func requireStatusCode(t *testing.T, err error, wantGRPC codes.Code, wantBizCode int) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, wantGRPC, st.Code())
	gotCode, convErr := strconv.Atoi(st.Message())
	require.NoError(t, convErr)
	require.Equal(t, wantBizCode, gotCode)
}

// ==================== 仓储 fake ====================

type fakeUserRepo struct {
	getByUUIDFn      func(context.Context, string) (*model.UserInfo, error)
	existsFn         func(context.Context, string) (bool, error)
	batchGetFn       func(context.Context, []string) ([]*model.UserInfo, error)
	updatePresenceFn func(context.Context, string, bool, time.Time) error
}

func (f *fakeUserRepo) GetByUUID(ctx context.Context, uuid string) (*model.UserInfo, error) {
	if f.getByUUIDFn == nil {
		return &model.UserInfo{Uuid: uuid}, nil
	}
	return f.getByUUIDFn(ctx, uuid)
}

func (f *fakeUserRepo) Exists(ctx context.Context, uuid string) (bool, error) {
	if f.existsFn == nil {
		return true, nil
	}
	return f.existsFn(ctx, uuid)
}

func (f *fakeUserRepo) BatchGetByUUIDs(ctx context.Context, uuids []string) ([]*model.UserInfo, error) {
	if f.batchGetFn == nil {
		return nil, nil
	}
	return f.batchGetFn(ctx, uuids)
}

func (f *fakeUserRepo) UpdatePresence(ctx context.Context, uuid string, online bool, at time.Time) error {
	if f.updatePresenceFn == nil {
		return nil
	}
	return f.updatePresenceFn(ctx, uuid, online, at)
}

type fakeFriendRepo struct {
	isFriendFn        func(context.Context, string, string) (bool, error)
	listFriendUUIDsFn func(context.Context, string) ([]string, error)
	removeFriendFn    func(context.Context, string, string) error
}

func (f *fakeFriendRepo) IsFriend(ctx context.Context, a, b string) (bool, error) {
	if f.isFriendFn == nil {
		return false, nil
	}
	return f.isFriendFn(ctx, a, b)
}

func (f *fakeFriendRepo) ListFriendUUIDs(ctx context.Context, userUUID string) ([]string, error) {
	if f.listFriendUUIDsFn == nil {
		return nil, nil
	}
	return f.listFriendUUIDsFn(ctx, userUUID)
}

func (f *fakeFriendRepo) RemoveFriend(ctx context.Context, a, b string) error {
	if f.removeFriendFn == nil {
		return nil
	}
	return f.removeFriendFn(ctx, a, b)
}

type fakeRequestRepo struct {
	createFn       func(context.Context, *model.FriendRequest) (*model.FriendRequest, error)
	getByIDFn      func(context.Context, int64) (*model.FriendRequest, error)
	existsActiveFn func(context.Context, string, string) (bool, error)
	listReceivedFn func(context.Context, string) ([]*model.FriendRequest, error)
	listSentFn     func(context.Context, string) ([]*model.FriendRequest, error)
	acceptFn       func(context.Context, *model.FriendRequest, time.Time) (bool, error)
	rejectFn       func(context.Context, int64, time.Time) (bool, error)
	getUnreadFn    func(context.Context, string) (int64, error)
	clearUnreadFn  func(context.Context, string) error
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *model.FriendRequest) (*model.FriendRequest, error) {
	if f.createFn == nil {
		req.Id = 1
		req.Status = model.FriendRequestPending
		return req, nil
	}
	return f.createFn(ctx, req)
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id int64) (*model.FriendRequest, error) {
	if f.getByIDFn == nil {
		return nil, nil
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeRequestRepo) ExistsActiveBetween(ctx context.Context, a, b string) (bool, error) {
	if f.existsActiveFn == nil {
		return false, nil
	}
	return f.existsActiveFn(ctx, a, b)
}

func (f *fakeRequestRepo) ListPendingReceived(ctx context.Context, userUUID string) ([]*model.FriendRequest, error) {
	if f.listReceivedFn == nil {
		return nil, nil
	}
	return f.listReceivedFn(ctx, userUUID)
}

func (f *fakeRequestRepo) ListPendingSent(ctx context.Context, userUUID string) ([]*model.FriendRequest, error) {
	if f.listSentFn == nil {
		return nil, nil
	}
	return f.listSentFn(ctx, userUUID)
}

func (f *fakeRequestRepo) AcceptAndCreateRelation(ctx context.Context, req *model.FriendRequest, at time.Time) (bool, error) {
	if f.acceptFn == nil {
		return false, nil
	}
	return f.acceptFn(ctx, req, at)
}

func (f *fakeRequestRepo) Reject(ctx context.Context, id int64, at time.Time) (bool, error) {
	if f.rejectFn == nil {
		return false, nil
	}
	return f.rejectFn(ctx, id, at)
}

func (f *fakeRequestRepo) GetUnreadCount(ctx context.Context, userUUID string) (int64, error) {
	if f.getUnreadFn == nil {
		return 0, nil
	}
	return f.getUnreadFn(ctx, userUUID)
}

func (f *fakeRequestRepo) ClearUnreadCount(ctx context.Context, userUUID string) error {
	if f.clearUnreadFn == nil {
		return nil
	}
	return f.clearUnreadFn(ctx, userUUID)
}

type fakeMessageRepo struct {
	appendFn       func(context.Context, *model.Message) (*model.Message, error)
	listFn         func(context.Context, string, int, int) ([]*model.Message, error)
	markReadFn     func(context.Context, string, string, time.Time) (int64, error)
	countUnreadFn  func(context.Context, string, string) (int64, error)
	countForUserFn func(context.Context, string) (int64, error)
	lastMessageFn  func(context.Context, string) (*model.Message, error)
}

func (f *fakeMessageRepo) Append(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if f.appendFn == nil {
		msg.Id = 1
		return msg, nil
	}
	return f.appendFn(ctx, msg)
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, key string, page, limit int) ([]*model.Message, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, key, page, limit)
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, key, receiver string, at time.Time) (int64, error) {
	if f.markReadFn == nil {
		return 0, nil
	}
	return f.markReadFn(ctx, key, receiver, at)
}

func (f *fakeMessageRepo) CountUnread(ctx context.Context, key, receiver string) (int64, error) {
	if f.countUnreadFn == nil {
		return 0, nil
	}
	return f.countUnreadFn(ctx, key, receiver)
}

func (f *fakeMessageRepo) CountUnreadForUser(ctx context.Context, receiver string) (int64, error) {
	if f.countForUserFn == nil {
		return 0, nil
	}
	return f.countForUserFn(ctx, receiver)
}

func (f *fakeMessageRepo) LastMessage(ctx context.Context, key string) (*model.Message, error) {
	if f.lastMessageFn == nil {
		return nil, nil
	}
	return f.lastMessageFn(ctx, key)
}

// ==================== 推送 / 事件 fake ====================

type fakeNotifier struct {
	mu       sync.Mutex
	messages []*dto.MessageItem
	received []*dto.FriendRequestItem
	accepted []*dto.FriendRequestItem
}

func (f *fakeNotifier) NotifyMessage(_ context.Context, msg *dto.MessageItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeNotifier) NotifyFriendRequestReceived(_ context.Context, item *dto.FriendRequestItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, item)
}

func (f *fakeNotifier) NotifyFriendRequestAccepted(_ context.Context, item *dto.FriendRequestItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, item)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []mq.ChatEvent
}

func (f *fakePublisher) Publish(_ context.Context, event mq.ChatEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) types() []mq.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mq.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}
