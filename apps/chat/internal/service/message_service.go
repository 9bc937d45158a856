package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/repository"
	"SocialChat/apps/chat/mq"
	"SocialChat/consts"
	"SocialChat/model"
	"SocialChat/pkg/convkey"
	"SocialChat/pkg/logger"

	"google.golang.org/grpc/codes"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	maxPage          = 10000
	maxContentLength = 5000 // 按字符计
)

// messageServiceImpl 消息服务实现
type messageServiceImpl struct {
	userRepo    repository.IUserRepository
	friendRepo  repository.IFriendRepository
	messageRepo repository.IMessageRepository
	notifier    Notifier
	publisher   EventPublisher
	now         func() time.Time
}

// NewMessageService 创建消息服务实例，notifier/publisher 可以为 nil
func NewMessageService(
	userRepo repository.IUserRepository,
	friendRepo repository.IFriendRepository,
	messageRepo repository.IMessageRepository,
	notifier Notifier,
	publisher EventPublisher,
) MessageService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &messageServiceImpl{
		userRepo:    userRepo,
		friendRepo:  friendRepo,
		messageRepo: messageRepo,
		notifier:    notifier,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Send 发送消息
// 业务流程：
//  1. 参数校验（内容非空、类型受支持）
//  2. 校验接收者存在且互为好友
//  3. 计算会话 key 并落库
//  4. 落库成功后尽力推送，推送失败不影响结果
//
// 错误码映射：
//   - codes.InvalidArgument: 参数错误 / 内容为空 / 类型不支持
//   - codes.NotFound: 接收者不存在
//   - codes.FailedPrecondition: 不是好友
//   - codes.Internal: 系统内部错误
func (s *messageServiceImpl) Send(ctx context.Context, senderUUID string, req *dto.SendMessageRequest) (*dto.MessageItem, error) {
	senderUUID, okSender := normalizeUserID(senderUUID)
	receiverUUID, okReceiver := normalizeUserID(req.ReceiverID)
	if !okSender || !okReceiver || senderUUID == receiverUUID {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, bizError(codes.InvalidArgument, consts.CodeMessageContentEmpty)
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	messageType := model.MessageType(strings.TrimSpace(req.MessageType))
	if messageType == "" {
		messageType = model.MessageTypeText
	}
	if !messageType.Valid() {
		return nil, bizError(codes.InvalidArgument, consts.CodeMessageTypeNotSupport)
	}

	// 1. 接收者必须存在
	exists, err := s.userRepo.Exists(ctx, receiverUUID)
	if err != nil {
		return nil, internalError(ctx, "查询用户是否存在失败", err, logger.String("receiver_uuid", receiverUUID))
	}
	if !exists {
		return nil, bizError(codes.NotFound, consts.CodeUserNotFound)
	}

	// 2. 只能给好友发消息
	isFriend, err := s.friendRepo.IsFriend(ctx, senderUUID, receiverUUID)
	if err != nil {
		return nil, internalError(ctx, "查询好友关系失败", err)
	}
	if !isFriend {
		return nil, bizError(codes.FailedPrecondition, consts.CodeNotFriend)
	}

	// 3. 落库
	stored, err := s.messageRepo.Append(ctx, &model.Message{
		ConversationKey: convkey.Key(senderUUID, receiverUUID),
		SenderUuid:      senderUUID,
		ReceiverUuid:    receiverUUID,
		Content:         content,
		MessageType:     messageType,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return nil, internalError(ctx, "消息落库失败", err, logger.String("receiver_uuid", receiverUUID))
	}

	item := dto.ConvertMessage(stored)

	// 4. 推送与事件投递
	s.notifier.NotifyMessage(ctx, item)
	s.publisher.Publish(ctx, mq.BuildMessageSentEvent(stored.ConversationKey, senderUUID, receiverUUID, stored.Id))

	return item, nil
}

// LoadConversation 加载会话
// 先取页，再批量已读；返回的页里发给自己的消息同步标记为已读。
func (s *messageServiceImpl) LoadConversation(ctx context.Context, userUUID, friendUUID string, page, limit int) (*dto.ConversationMessagesResponse, error) {
	userUUID, okUser := normalizeUserID(userUUID)
	friendUUID, okFriend := normalizeUserID(friendUUID)
	if !okUser || !okFriend || userUUID == friendUUID {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	if page > maxPage {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	page, limit = normalizePagination(page, limit)

	key := convkey.Key(userUUID, friendUUID)
	messages, err := s.messageRepo.ListByConversation(ctx, key, page, limit)
	if err != nil {
		return nil, internalError(ctx, "查询会话消息失败", err, logger.String("conversation_key", key))
	}

	readAt := s.now()
	marked, err := s.messageRepo.MarkRead(ctx, key, userUUID, readAt)
	if err != nil {
		return nil, internalError(ctx, "批量已读失败", err, logger.String("conversation_key", key))
	}

	items := dto.ConvertMessages(messages)
	if marked > 0 {
		for _, item := range items {
			if item.ReceiverID == userUUID && !item.IsRead {
				item.IsRead = true
				item.ReadAt = readAt.UnixMilli()
			}
		}
		s.publisher.Publish(ctx, mq.BuildMessagesReadEvent(key, userUUID, marked))
	}

	return &dto.ConversationMessagesResponse{
		ConversationID: key,
		Items:          items,
		Page:           page,
		Limit:          limit,
		MarkedRead:     marked,
	}, nil
}

// ConversationUnread 单个会话未读数
func (s *messageServiceImpl) ConversationUnread(ctx context.Context, userUUID, friendUUID string) (*dto.UnreadCountResponse, error) {
	userUUID, okUser := normalizeUserID(userUUID)
	friendUUID, okFriend := normalizeUserID(friendUUID)
	if !okUser || !okFriend || userUUID == friendUUID {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	count, err := s.messageRepo.CountUnread(ctx, convkey.Key(userUUID, friendUUID), userUUID)
	if err != nil {
		return nil, internalError(ctx, "查询会话未读数失败", err)
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}

// UnreadCount 全局未读数
func (s *messageServiceImpl) UnreadCount(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error) {
	count, err := s.messageRepo.CountUnreadForUser(ctx, userUUID)
	if err != nil {
		return nil, internalError(ctx, "查询未读数失败", err)
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}

// normalizePagination 默认第 1 页、每页 50 条，单页最多 100 条
func normalizePagination(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
