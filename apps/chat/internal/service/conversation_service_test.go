package service

import (
	"context"
	"testing"
	"time"

	"SocialChat/apps/chat/internal/repository"
	"SocialChat/consts"
	"SocialChat/model"
	"SocialChat/pkg/convkey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestConversationServiceOrdering(t *testing.T) {
	initServiceTestLogger()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	last := map[string]*model.Message{
		convkey.Key("me", "bob"):   {Id: 1, Content: "old", CreatedAt: base},
		convkey.Key("me", "carol"): {Id: 2, Content: "new", CreatedAt: base.Add(time.Hour)},
	}

	svc := NewConversationService(&fakeUserRepo{
		batchGetFn: func(context.Context, []string) ([]*model.UserInfo, error) {
			return []*model.UserInfo{{Uuid: "bob", Nickname: "Bob"}, {Uuid: "carol", Nickname: "Carol"}}, nil
		},
	}, &fakeFriendRepo{
		listFriendUUIDsFn: func(context.Context, string) ([]string, error) {
			return []string{"dave", "bob", "carol"}, nil
		},
	}, &fakeMessageRepo{
		lastMessageFn: func(_ context.Context, key string) (*model.Message, error) {
			return last[key], nil
		},
		countUnreadFn: func(_ context.Context, key, receiver string) (int64, error) {
			assert.Equal(t, "me", receiver)
			if key == convkey.Key("me", "bob") {
				return 2, nil
			}
			return 0, nil
		},
	})

	resp, err := svc.ListConversations(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)

	assert.Equal(t, "carol", resp.Items[0].Friend.UUID)
	assert.Equal(t, "new", resp.Items[0].LastMessage.Content)
	assert.Equal(t, "bob", resp.Items[1].Friend.UUID)
	assert.Equal(t, int64(2), resp.Items[1].UnreadCount)
	assert.Equal(t, "dave", resp.Items[2].Friend.UUID)
	assert.Nil(t, resp.Items[2].LastMessage)
	assert.Equal(t, convkey.Key("me", "dave"), resp.Items[2].ConversationID)
}

func TestConversationServiceNoFriends(t *testing.T) {
	initServiceTestLogger()
	svc := NewConversationService(&fakeUserRepo{}, &fakeFriendRepo{}, &fakeMessageRepo{})
	resp, err := svc.ListConversations(context.Background(), "me")
	require.NoError(t, err)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}

func TestConversationServiceDependencyFailure(t *testing.T) {
	initServiceTestLogger()
	svc := NewConversationService(&fakeUserRepo{}, &fakeFriendRepo{
		listFriendUUIDsFn: func(context.Context, string) ([]string, error) { return []string{"bob"}, nil },
	}, &fakeMessageRepo{
		lastMessageFn: func(context.Context, string) (*model.Message, error) { return nil, repository.ErrDatabase },
	})
	_, err := svc.ListConversations(context.Background(), "me")
	requireStatusCode(t, err, codes.Internal, consts.CodeInternalError)
}
