package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/repository"
	"SocialChat/apps/chat/mq"
	"SocialChat/consts"
	"SocialChat/model"
	"SocialChat/pkg/convkey"
	"SocialChat/pkg/logger"

	"google.golang.org/grpc/codes"
)

// relationServiceImpl 好友关系服务实现
type relationServiceImpl struct {
	userRepo    repository.IUserRepository
	friendRepo  repository.IFriendRepository
	requestRepo repository.IFriendRequestRepository
	notifier    Notifier
	publisher   EventPublisher
	now         func() time.Time
}

// NewRelationService 创建好友关系服务实例，notifier/publisher 可以为 nil
func NewRelationService(
	userRepo repository.IUserRepository,
	friendRepo repository.IFriendRepository,
	requestRepo repository.IFriendRequestRepository,
	notifier Notifier,
	publisher EventPublisher,
) RelationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &relationServiceImpl{
		userRepo:    userRepo,
		friendRepo:  friendRepo,
		requestRepo: requestRepo,
		notifier:    notifier,
		publisher:   publisher,
		now:         time.Now,
	}
}

// SendRequest 发送好友申请
// 业务流程：
//  1. 参数校验（不能加自己）
//  2. 校验目标用户存在
//  3. 校验不是好友、两人之间没有活跃申请（不分方向）
//  4. 落库，再尽力推送给在线的被申请人
//
// 错误码映射：
//   - codes.InvalidArgument: 参数错误 / 不能添加自己
//   - codes.NotFound: 目标用户不存在
//   - codes.AlreadyExists: 已经是好友 / 申请已存在
//   - codes.Internal: 系统内部错误
func (s *relationServiceImpl) SendRequest(ctx context.Context, senderUUID string, req *dto.SendFriendRequestRequest) (*dto.FriendRequestItem, error) {
	senderUUID, okSender := normalizeUserID(senderUUID)
	receiverUUID, okReceiver := normalizeUserID(req.ReceiverID)
	if !okSender || !okReceiver {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	if senderUUID == receiverUUID {
		return nil, bizError(codes.InvalidArgument, consts.CodeCannotAddSelf)
	}

	// 1. 目标用户必须存在
	exists, err := s.userRepo.Exists(ctx, receiverUUID)
	if err != nil {
		return nil, internalError(ctx, "查询用户是否存在失败", err, logger.String("receiver_uuid", receiverUUID))
	}
	if !exists {
		return nil, bizError(codes.NotFound, consts.CodeUserNotFound)
	}

	// 2. 已经是好友
	isFriend, err := s.friendRepo.IsFriend(ctx, senderUUID, receiverUUID)
	if err != nil {
		return nil, internalError(ctx, "查询好友关系失败", err)
	}
	if isFriend {
		return nil, bizError(codes.AlreadyExists, consts.CodeAlreadyFriend)
	}

	// 3. 两人之间已有 pending/accepted 申请
	active, err := s.requestRepo.ExistsActiveBetween(ctx, senderUUID, receiverUUID)
	if err != nil {
		return nil, internalError(ctx, "查询好友申请失败", err)
	}
	if active {
		return nil, bizError(codes.AlreadyExists, consts.CodeFriendRequestSent)
	}

	// 4. 落库（并发互发时由唯一索引兜底）
	created, err := s.requestRepo.Create(ctx, &model.FriendRequest{
		SenderUuid:   senderUUID,
		ReceiverUuid: receiverUUID,
		Message:      strings.TrimSpace(req.Message),
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, bizError(codes.AlreadyExists, consts.CodeFriendRequestSent)
		}
		return nil, internalError(ctx, "创建好友申请失败", err)
	}

	item := dto.ConvertFriendRequest(created, s.loadUsers(ctx, senderUUID, receiverUUID))

	// 5. 推送与事件都不影响结果
	s.notifier.NotifyFriendRequestReceived(ctx, item)
	s.publisher.Publish(ctx, mq.BuildFriendRequestEvent(mq.EventFriendRequestCreated,
		convkey.Key(senderUUID, receiverUUID), senderUUID, receiverUUID, created.Id))

	return item, nil
}

// Accept 同意好友申请
// 申请状态更新与双向好友边在同一事务内完成，不会出现单向好友。
//
// 错误码映射：
//   - codes.NotFound: 申请不存在
//   - codes.PermissionDenied: 不是被申请人
//   - codes.FailedPrecondition: 申请已处理
//   - codes.Internal: 系统内部错误
func (s *relationServiceImpl) Accept(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error) {
	req, err := s.loadHandleableRequest(ctx, requestID, actingUUID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	alreadyProcessed, err := s.requestRepo.AcceptAndCreateRelation(ctx, req, at)
	if err != nil {
		return nil, internalError(ctx, "同意好友申请失败", err, logger.Int64("request_id", requestID))
	}
	if alreadyProcessed {
		return nil, bizError(codes.FailedPrecondition, consts.CodeFriendRequestProcessed)
	}

	req.Status = model.FriendRequestAccepted
	req.HandledAt = &at
	item := dto.ConvertFriendRequest(req, s.loadUsers(ctx, req.SenderUuid, req.ReceiverUuid))

	s.notifier.NotifyFriendRequestAccepted(ctx, item)
	s.publisher.Publish(ctx, mq.BuildFriendRequestEvent(mq.EventFriendRequestAccepted,
		convkey.Key(req.SenderUuid, req.ReceiverUuid), actingUUID, req.SenderUuid, req.Id))

	return item, nil
}

// Reject 拒绝好友申请，不改变任何好友集合
func (s *relationServiceImpl) Reject(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error) {
	req, err := s.loadHandleableRequest(ctx, requestID, actingUUID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	alreadyProcessed, err := s.requestRepo.Reject(ctx, requestID, at)
	if err != nil {
		return nil, internalError(ctx, "拒绝好友申请失败", err, logger.Int64("request_id", requestID))
	}
	if alreadyProcessed {
		return nil, bizError(codes.FailedPrecondition, consts.CodeFriendRequestProcessed)
	}

	req.Status = model.FriendRequestRejected
	req.HandledAt = &at
	s.publisher.Publish(ctx, mq.BuildFriendRequestEvent(mq.EventFriendRequestRejected,
		convkey.Key(req.SenderUuid, req.ReceiverUuid), actingUUID, req.SenderUuid, req.Id))

	return dto.ConvertFriendRequest(req, nil), nil
}

// loadHandleableRequest accept/reject 共用的守卫：存在、本人是被申请人、仍是 pending
func (s *relationServiceImpl) loadHandleableRequest(ctx context.Context, requestID int64, actingUUID string) (*model.FriendRequest, error) {
	if requestID <= 0 || strings.TrimSpace(actingUUID) == "" {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, bizError(codes.NotFound, consts.CodeFriendRequestNotFound)
		}
		return nil, internalError(ctx, "查询好友申请失败", err, logger.Int64("request_id", requestID))
	}
	if req.ReceiverUuid != strings.TrimSpace(actingUUID) {
		return nil, bizError(codes.PermissionDenied, consts.CodePermissionDeny)
	}
	if req.Status != model.FriendRequestPending {
		return nil, bizError(codes.FailedPrecondition, consts.CodeFriendRequestProcessed)
	}
	return req, nil
}

// ListReceived 收到的待处理申请（查看后清空新申请红点）
func (s *relationServiceImpl) ListReceived(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error) {
	requests, err := s.requestRepo.ListPendingReceived(ctx, userUUID)
	if err != nil {
		return nil, internalError(ctx, "查询收到的好友申请失败", err)
	}

	if err := s.requestRepo.ClearUnreadCount(ctx, userUUID); err != nil {
		logger.Warn(ctx, "清空好友申请未读数失败", logger.ErrorField("error", err))
	}

	return s.buildRequestList(ctx, requests, func(r *model.FriendRequest) string { return r.SenderUuid }), nil
}

// ListSent 发出的待处理申请
func (s *relationServiceImpl) ListSent(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error) {
	requests, err := s.requestRepo.ListPendingSent(ctx, userUUID)
	if err != nil {
		return nil, internalError(ctx, "查询发出的好友申请失败", err)
	}
	return s.buildRequestList(ctx, requests, func(r *model.FriendRequest) string { return r.ReceiverUuid }), nil
}

func (s *relationServiceImpl) buildRequestList(ctx context.Context, requests []*model.FriendRequest, peer func(*model.FriendRequest) string) *dto.FriendRequestListResponse {
	peers := make([]string, 0, len(requests))
	for _, r := range requests {
		peers = append(peers, peer(r))
	}
	users := s.loadUsers(ctx, peers...)

	items := make([]*dto.FriendRequestItem, 0, len(requests))
	for _, r := range requests {
		items = append(items, dto.ConvertFriendRequest(r, users))
	}
	return &dto.FriendRequestListResponse{Items: items}
}

// UnreadRequestCount 新申请未读数（Redis 不可用时为 0）
func (s *relationServiceImpl) UnreadRequestCount(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error) {
	count, err := s.requestRepo.GetUnreadCount(ctx, userUUID)
	if err != nil {
		logger.Warn(ctx, "查询好友申请未读数失败", logger.ErrorField("error", err))
		count = 0
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}

// RemoveFriend 解除好友
// 幂等：对非好友调用直接成功；历史消息保留。
func (s *relationServiceImpl) RemoveFriend(ctx context.Context, userUUID, friendUUID string) error {
	userUUID, okUser := normalizeUserID(userUUID)
	friendUUID, okFriend := normalizeUserID(friendUUID)
	if !okUser || !okFriend || userUUID == friendUUID {
		return bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	if err := s.friendRepo.RemoveFriend(ctx, userUUID, friendUUID); err != nil {
		return internalError(ctx, "删除好友失败", err, logger.String("friend_uuid", friendUUID))
	}

	s.publisher.Publish(ctx, mq.BuildFriendRemovedEvent(convkey.Key(userUUID, friendUUID), userUUID, friendUUID))
	return nil
}

// ListFriends 好友列表
func (s *relationServiceImpl) ListFriends(ctx context.Context, userUUID string) (*dto.FriendListResponse, error) {
	friendUUIDs, err := s.friendRepo.ListFriendUUIDs(ctx, userUUID)
	if err != nil {
		return nil, internalError(ctx, "查询好友列表失败", err)
	}
	if len(friendUUIDs) == 0 {
		return &dto.FriendListResponse{Items: []*dto.FriendItem{}}, nil
	}

	users, err := s.userRepo.BatchGetByUUIDs(ctx, friendUUIDs)
	if err != nil {
		return nil, internalError(ctx, "批量查询用户信息失败", err)
	}
	userMap := dto.UserMap(users)

	items := make([]*dto.FriendItem, 0, len(friendUUIDs))
	for _, friendUUID := range friendUUIDs {
		items = append(items, dto.ConvertFriend(userUUID, friendUUID, userMap[friendUUID]))
	}
	return &dto.FriendListResponse{Items: items}, nil
}

// loadUsers 补齐展示用的用户资料，失败时降级为不带资料
func (s *relationServiceImpl) loadUsers(ctx context.Context, uuids ...string) map[string]*model.UserInfo {
	if len(uuids) == 0 {
		return nil
	}
	users, err := s.userRepo.BatchGetByUUIDs(ctx, uuids)
	if err != nil {
		logger.Warn(ctx, "批量查询用户信息失败", logger.ErrorField("error", err))
		return nil
	}
	return dto.UserMap(users)
}
