package service

import (
	"context"
	"testing"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/repository"
	"SocialChat/consts"
	"SocialChat/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type scenarioServices struct {
	relation     RelationService
	message      MessageService
	conversation ConversationService
	notifier     *fakeNotifier
}

func newScenarioServices(t *testing.T, users ...string) *scenarioServices {
	t.Helper()
	initServiceTestLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.AutoMigrate(db))

	for _, id := range users {
		require.NoError(t, db.Create(&model.UserInfo{Uuid: id, Nickname: id}).Error)
	}

	userRepo := repository.NewUserRepository(db, nil)
	friendRepo := repository.NewFriendRepository(db)
	requestRepo := repository.NewFriendRequestRepository(db, nil)
	messageRepo := repository.NewMessageRepository(db)
	notifier := &fakeNotifier{}

	return &scenarioServices{
		relation:     NewRelationService(userRepo, friendRepo, requestRepo, notifier, nil),
		message:      NewMessageService(userRepo, friendRepo, messageRepo, notifier, nil),
		conversation: NewConversationService(userRepo, friendRepo, messageRepo),
		notifier:     notifier,
	}
}

func friendUUIDs(t *testing.T, s RelationService, user string) []string {
	t.Helper()
	resp, err := s.ListFriends(context.Background(), user)
	require.NoError(t, err)
	out := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.UUID)
	}
	return out
}

// 申请 -> 同意 -> 发消息 -> 未读 1 -> 打开会话 -> 未读 0
func TestScenarioFriendshipThenMessaging(t *testing.T) {
	s := newScenarioServices(t, "userA", "userB")
	ctx := context.Background()

	_, err := s.message.Send(ctx, "userA", &dto.SendMessageRequest{ReceiverID: "userB", Content: "too early"})
	requireStatusCode(t, err, codes.FailedPrecondition, consts.CodeNotFriend)

	_, err = s.relation.SendRequest(ctx, "userA", &dto.SendFriendRequestRequest{ReceiverID: "userB", Message: "join me"})
	require.NoError(t, err)

	received, err := s.relation.ListReceived(ctx, "userB")
	require.NoError(t, err)
	require.Len(t, received.Items, 1)
	assert.Equal(t, "userA", received.Items[0].SenderID)
	assert.Equal(t, "pending", received.Items[0].Status)
	assert.Equal(t, "join me", received.Items[0].Message)

	_, err = s.relation.SendRequest(ctx, "userB", &dto.SendFriendRequestRequest{ReceiverID: "userA"})
	requireStatusCode(t, err, codes.AlreadyExists, consts.CodeFriendRequestSent)

	_, err = s.relation.Accept(ctx, received.Items[0].ID, "userB")
	require.NoError(t, err)
	assert.Equal(t, []string{"userB"}, friendUUIDs(t, s.relation, "userA"))
	assert.Equal(t, []string{"userA"}, friendUUIDs(t, s.relation, "userB"))

	_, err = s.relation.SendRequest(ctx, "userA", &dto.SendFriendRequestRequest{ReceiverID: "userB"})
	requireStatusCode(t, err, codes.AlreadyExists, consts.CodeAlreadyFriend)

	sent, err := s.message.Send(ctx, "userA", &dto.SendMessageRequest{ReceiverID: "userB", Content: "hello"})
	require.NoError(t, err)
	require.Len(t, s.notifier.messages, 1)
	assert.Equal(t, sent.ID, s.notifier.messages[0].ID)

	unread, err := s.message.ConversationUnread(ctx, "userB", "userA")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Count)

	inbox, err := s.conversation.ListConversations(ctx, "userB")
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, int64(1), inbox.Items[0].UnreadCount)
	assert.Equal(t, "hello", inbox.Items[0].LastMessage.Content)

	page, err := s.message.LoadConversation(ctx, "userB", "userA", 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, sent.ID, page.Items[0].ID)
	assert.True(t, page.Items[0].IsRead)

	unread, err = s.message.ConversationUnread(ctx, "userB", "userA")
	require.NoError(t, err)
	assert.Zero(t, unread.Count)

	// 再次打开不改变已读时间
	again, err := s.message.LoadConversation(ctx, "userB", "userA", 1, 50)
	require.NoError(t, err)
	assert.Zero(t, again.MarkedRead)
	assert.Equal(t, page.Items[0].ReadAt, again.Items[0].ReadAt)
}

func TestScenarioRejectLeavesFriendSetsUntouched(t *testing.T) {
	s := newScenarioServices(t, "userA", "userB")
	ctx := context.Background()

	req, err := s.relation.SendRequest(ctx, "userA", &dto.SendFriendRequestRequest{ReceiverID: "userB"})
	require.NoError(t, err)

	_, err = s.relation.Reject(ctx, req.ID, "userB")
	require.NoError(t, err)
	assert.Empty(t, friendUUIDs(t, s.relation, "userA"))
	assert.Empty(t, friendUUIDs(t, s.relation, "userB"))

	_, err = s.relation.Accept(ctx, req.ID, "userB")
	requireStatusCode(t, err, codes.FailedPrecondition, consts.CodeFriendRequestProcessed)
}

func TestScenarioRemoveFriendKeepsHistory(t *testing.T) {
	s := newScenarioServices(t, "userA", "userB")
	ctx := context.Background()

	req, err := s.relation.SendRequest(ctx, "userA", &dto.SendFriendRequestRequest{ReceiverID: "userB"})
	require.NoError(t, err)
	_, err = s.relation.Accept(ctx, req.ID, "userB")
	require.NoError(t, err)
	_, err = s.message.Send(ctx, "userB", &dto.SendMessageRequest{ReceiverID: "userA", Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, s.relation.RemoveFriend(ctx, "userA", "userB"))
	require.NoError(t, s.relation.RemoveFriend(ctx, "userA", "userB"))

	_, err = s.message.Send(ctx, "userB", &dto.SendMessageRequest{ReceiverID: "userA", Content: "still there?"})
	requireStatusCode(t, err, codes.FailedPrecondition, consts.CodeNotFriend)

	page, err := s.message.LoadConversation(ctx, "userA", "userB", 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "hi", page.Items[0].Content)

	// 解除后可以重新申请
	_, err = s.relation.SendRequest(ctx, "userB", &dto.SendFriendRequestRequest{ReceiverID: "userA"})
	require.NoError(t, err)
}
