package service

import (
	"context"
	"sort"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/repository"
	"SocialChat/pkg/convkey"
	"SocialChat/pkg/logger"
)

// conversationServiceImpl 会话列表服务实现
type conversationServiceImpl struct {
	userRepo    repository.IUserRepository
	friendRepo  repository.IFriendRepository
	messageRepo repository.IMessageRepository
}

// NewConversationService 创建会话列表服务实例
func NewConversationService(
	userRepo repository.IUserRepository,
	friendRepo repository.IFriendRepository,
	messageRepo repository.IMessageRepository,
) ConversationService {
	return &conversationServiceImpl{
		userRepo:    userRepo,
		friendRepo:  friendRepo,
		messageRepo: messageRepo,
	}
}

// ListConversations 收件箱
// 每次请求都从消息表重新计算，不做缓存。
// 排序：有消息的会话按最后一条消息时间倒序，没有消息的排在最后。
func (s *conversationServiceImpl) ListConversations(ctx context.Context, userUUID string) (*dto.ConversationListResponse, error) {
	friendUUIDs, err := s.friendRepo.ListFriendUUIDs(ctx, userUUID)
	if err != nil {
		return nil, internalError(ctx, "查询好友列表失败", err)
	}
	if len(friendUUIDs) == 0 {
		return &dto.ConversationListResponse{Items: []*dto.ConversationSummary{}}, nil
	}

	users, err := s.userRepo.BatchGetByUUIDs(ctx, friendUUIDs)
	if err != nil {
		return nil, internalError(ctx, "批量查询用户信息失败", err)
	}
	userMap := dto.UserMap(users)

	items := make([]*dto.ConversationSummary, 0, len(friendUUIDs))
	for _, friendUUID := range friendUUIDs {
		key := convkey.Key(userUUID, friendUUID)

		last, err := s.messageRepo.LastMessage(ctx, key)
		if err != nil {
			return nil, internalError(ctx, "查询最后一条消息失败", err, logger.String("conversation_key", key))
		}
		unread, err := s.messageRepo.CountUnread(ctx, key, userUUID)
		if err != nil {
			return nil, internalError(ctx, "查询会话未读数失败", err, logger.String("conversation_key", key))
		}

		items = append(items, &dto.ConversationSummary{
			ConversationID: key,
			Friend:         dto.ConvertFriend(userUUID, friendUUID, userMap[friendUUID]),
			LastMessage:    dto.ConvertMessage(last),
			UnreadCount:    unread,
		})
	}

	sortConversations(items)
	return &dto.ConversationListResponse{Items: items}, nil
}

func sortConversations(items []*dto.ConversationSummary) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].LastMessage, items[j].LastMessage
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID > b.ID
	})
}
