package svc

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/manager"
	"SocialChat/apps/chat/mq"
	"SocialChat/config"
	"SocialChat/consts"
	"SocialChat/pkg/convkey"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/metrics"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// presenceLockShards 在线状态分段锁数量
const presenceLockShards = 64

// 上行事件
const (
	EventUserConnected     = "user_connected"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventFriendRequestSent = "friend_request_sent"
	EventHeartbeat         = "heartbeat"
)

// 下行事件
const (
	EventReceiveMessage        = "receive_message"
	EventUserTyping            = "user_typing"
	EventUserOnline            = "user_online"
	EventUserOffline           = "user_offline"
	EventFriendRequestReceived = "friend_request_received"
	EventHeartbeatAck          = "heartbeat_ack"
	EventError                 = "error"
)

// EventFriendRequestAccepted 上下行同名：客户端上报同意，服务端转发给申请人
const EventFriendRequestAccepted = "friend_request_accepted"

// Envelope 定义 WebSocket 通用消息包格式。
// 约定：
// - Type: 事件名；
// - Data: 事件体（由上层按 Type 再解析）。
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorData 定义 type=error 时的 data 结构。
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FrameError 需要以 error 帧回给客户端的错误
type FrameError struct {
	Code    int
	Message string
}

func (e *FrameError) Error() string {
	return "realtime frame error " + strconv.Itoa(e.Code) + ": " + e.Message
}

func frameError(code int) *FrameError {
	return &FrameError{Code: code, Message: consts.GetMessage(int32(code))}
}

// IdentifyData user_connected 事件体
type IdentifyData struct {
	UserID string `json:"userId"`
}

// ConversationData join/leave 事件体，conversationId 与 friendId 二选一
type ConversationData struct {
	ConversationID string `json:"conversationId"`
	FriendID       string `json:"friendId"`
}

// TypingData typing 上行与 user_typing 下行共用
type TypingData struct {
	ConversationID string `json:"conversationId"`
	FriendID       string `json:"friendId,omitempty"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// PresenceData user_online/user_offline 事件体
type PresenceData struct {
	UserID     string `json:"userId"`
	Online     bool   `json:"online"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

// PresenceMirror 在线状态落库，repository.IUserRepository 满足该接口
type PresenceMirror interface {
	UpdatePresence(ctx context.Context, uuid string, online bool, at time.Time) error
}

// EventPublisher 领域事件投递，mq.EventPublisher 满足该接口
type EventPublisher interface {
	Publish(ctx context.Context, event mq.ChatEvent)
}

// Router 实时事件路由。
// 持有在线注册表和会话广播组，负责 identify/join/typing/转发，以及落库之后的服务端推送。
// 所有推送都是尽力而为：目标不在线直接丢弃，不排队不重试。
type Router struct {
	presence  *manager.PresenceRegistry
	groups    *manager.GroupRegistry
	mirror    PresenceMirror
	publisher EventPublisher
	cfg       config.RealtimeConfig

	// 同一事件可能由服务端推送一次、发送方客户端再转发一次，按事件 id 去重
	dedupMu   sync.Mutex
	delivered *expirable.LRU[string, struct{}]

	// 同一用户的上下线（注册表变更 + 落库镜像 + 广播）串行执行，镜像按状态变化顺序落库
	presenceLocks [presenceLockShards]sync.Mutex

	now func() time.Time
}

// NewRouter 创建实时路由，mirror/publisher 可以为 nil
func NewRouter(presence *manager.PresenceRegistry, groups *manager.GroupRegistry, mirror PresenceMirror, publisher EventPublisher, cfg config.RealtimeConfig) *Router {
	def := config.DefaultRealtimeConfig()
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = def.DedupSize
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = def.DedupTTL
	}
	if cfg.MirrorTimeout <= 0 {
		cfg.MirrorTimeout = def.MirrorTimeout
	}
	return &Router{
		presence:  presence,
		groups:    groups,
		mirror:    mirror,
		publisher: publisher,
		cfg:       cfg,
		delivered: expirable.NewLRU[string, struct{}](cfg.DedupSize, nil, cfg.DedupTTL),
		now:       time.Now,
	}
}

// Config 当前实时通道配置（已补齐默认值）
func (r *Router) Config() config.RealtimeConfig {
	return r.cfg
}

// Presence 在线注册表
func (r *Router) Presence() *manager.PresenceRegistry {
	return r.presence
}

// Attach 登记新连接，停机后返回 false，调用方应直接关闭连接。
func (r *Router) Attach(client *manager.Client) bool {
	return r.presence.Attach(client)
}

// Shutdown 断开全部连接
func (r *Router) Shutdown() {
	r.presence.Shutdown()
	metrics.OnlineUsers.Set(0)
}

// ==================== 上行事件 ====================

// Identify 处理 user_connected：绑定用户、登记在线、通知其他在线用户。
// 只接受与握手鉴权一致的用户；同一连接重复 identify 同一用户是幂等的。
func (r *Router) Identify(ctx context.Context, client *manager.Client, data json.RawMessage) error {
	var req IdentifyData
	if err := decodeData(data, &req); err != nil {
		return err
	}
	userUUID := strings.TrimSpace(req.UserID)
	if !convkey.ValidUserID(userUUID) {
		return frameError(consts.CodeParamError)
	}
	if userUUID != client.SessionUser() {
		return frameError(consts.CodeIdentityMismatch)
	}

	wasIdentified := client.State() == manager.StateIdentified
	if !client.Identify(userUUID) {
		return frameError(consts.CodeIdentityMismatch)
	}

	unlock := r.lockUser(userUUID)
	defer unlock()

	displaced, ok := r.presence.Connect(userUUID, client)
	if !ok {
		// 服务正在停机
		client.Close()
		return nil
	}
	metrics.OnlineUsers.Set(float64(r.presence.Count()))

	if displaced != nil {
		logger.Info(ctx, "同一用户新连接顶替旧连接",
			logger.String("user_uuid", userUUID),
			logger.Any("old_conn_id", displaced.ID()),
			logger.Any("conn_id", client.ID()),
		)
	}
	if wasIdentified && displaced == nil {
		return nil
	}

	at := r.now()
	r.mirrorPresence(ctx, userUUID, true, at)
	r.broadcastPresence(ctx, userUUID, true, at)
	r.publish(ctx, mq.BuildPresenceEvent(userUUID, true))
	return nil
}

// Disconnect 连接断开后的清理：退出所有广播组，注销在线。
// 已被顶替的旧连接断开时不影响新连接，也不会广播离线。
func (r *Router) Disconnect(ctx context.Context, client *manager.Client) {
	r.groups.LeaveAll(client)

	userUUID := client.UserUUID()
	if userUUID == "" {
		r.presence.Disconnect(client)
		return
	}
	unlock := r.lockUser(userUUID)
	defer unlock()

	if _, removed := r.presence.Disconnect(client); !removed {
		return
	}
	metrics.OnlineUsers.Set(float64(r.presence.Count()))

	at := r.now()
	r.mirrorPresence(ctx, userUUID, false, at)
	r.broadcastPresence(ctx, userUUID, false, at)
	r.publish(ctx, mq.BuildPresenceEvent(userUUID, false))
}

// JoinConversation 加入会话广播组，幂等。
// 加入不校验好友关系，发送消息时才校验。
func (r *Router) JoinConversation(ctx context.Context, client *manager.Client, data json.RawMessage) error {
	userUUID, err := requireIdentified(client)
	if err != nil {
		return err
	}
	key, err := r.resolveConversation(userUUID, data)
	if err != nil {
		return err
	}
	if r.groups.Join(key, client) {
		logger.Debug(ctx, "加入会话广播组",
			logger.String("user_uuid", userUUID),
			logger.String("conversation_id", key),
		)
	}
	return nil
}

// LeaveConversation 退出会话广播组，未加入时为空操作
func (r *Router) LeaveConversation(ctx context.Context, client *manager.Client, data json.RawMessage) error {
	userUUID, err := requireIdentified(client)
	if err != nil {
		return err
	}
	key, err := r.resolveConversation(userUUID, data)
	if err != nil {
		return err
	}
	r.groups.Leave(key, client)
	return nil
}

// RelayMessage 处理 send_message：消息已在 REST 链路落库，这里只转发给会话组内的其他成员。
func (r *Router) RelayMessage(ctx context.Context, client *manager.Client, data json.RawMessage) error {
	userUUID, err := requireIdentified(client)
	if err != nil {
		return err
	}
	var msg dto.MessageItem
	if err := decodeData(data, &msg); err != nil {
		return err
	}
	if msg.SenderID == "" {
		msg.SenderID = userUUID
	}
	if msg.SenderID != userUUID {
		return frameError(consts.CodePermissionDeny)
	}
	if msg.ID <= 0 || !convkey.ValidUserID(msg.ReceiverID) || msg.ReceiverID == userUUID {
		return frameError(consts.CodeParamError)
	}
	key := convkey.Key(userUUID, msg.ReceiverID)
	if msg.ConversationID != "" && msg.ConversationID != key {
		return frameError(consts.CodeParamError)
	}
	msg.ConversationID = key

	r.deliverMessage(ctx, &msg)
	return nil
}

// Typing 处理 typing：转发给组内其他成员，不落库不去抖
func (r *Router) Typing(ctx context.Context, client *manager.Client, data json.RawMessage) error {
	userUUID, err := requireIdentified(client)
	if err != nil {
		return err
	}
	var req TypingData
	if err := decodeData(data, &req); err != nil {
		return err
	}
	key, err := conversationKey(userUUID, req.ConversationID, req.FriendID)
	if err != nil {
		return err
	}

	frame, err := r.MarshalEnvelope(EventUserTyping, TypingData{
		ConversationID: key,
		UserID:         userUUID,
		IsTyping:       req.IsTyping,
	})
	if err != nil {
		return err
	}
	sent := r.groups.BroadcastExceptUser(key, frame, userUUID)
	countDelivery(EventUserTyping, sent > 0)
	return nil
}

// RelayFriendRequestSent 处理 friend_request_sent：定向推送给被申请人
func (r *Router) RelayFriendRequestSent(ctx context.Context, client *manager.Client, data json.RawMessage) error {
	userUUID, err := requireIdentified(client)
	if err != nil {
		return err
	}
	var item dto.FriendRequestItem
	if err := decodeData(data, &item); err != nil {
		return err
	}
	if item.SenderID == "" {
		item.SenderID = userUUID
	}
	if item.SenderID != userUUID {
		return frameError(consts.CodePermissionDeny)
	}
	if item.ID <= 0 || !convkey.ValidUserID(item.ReceiverID) {
		return frameError(consts.CodeParamError)
	}

	r.deliverToUser(ctx, EventFriendRequestReceived, item.ID, item.ReceiverID, &item)
	return nil
}

// RelayFriendRequestAccepted 处理 friend_request_accepted：只有被申请人能上报，定向推送给申请人
func (r *Router) RelayFriendRequestAccepted(ctx context.Context, client *manager.Client, data json.RawMessage) error {
	userUUID, err := requireIdentified(client)
	if err != nil {
		return err
	}
	var item dto.FriendRequestItem
	if err := decodeData(data, &item); err != nil {
		return err
	}
	if item.ReceiverID == "" {
		item.ReceiverID = userUUID
	}
	if item.ReceiverID != userUUID {
		return frameError(consts.CodePermissionDeny)
	}
	if item.ID <= 0 || !convkey.ValidUserID(item.SenderID) {
		return frameError(consts.CodeParamError)
	}

	r.deliverToUser(ctx, EventFriendRequestAccepted, item.ID, item.SenderID, &item)
	return nil
}

// Heartbeat 回 heartbeat_ack，未 identify 的连接也可以发心跳
func (r *Router) Heartbeat(ctx context.Context, client *manager.Client) error {
	ack, err := r.MarshalEnvelope(EventHeartbeatAck, nil)
	if err != nil {
		return err
	}
	if !client.Enqueue(ack) {
		client.Close()
	}
	return nil
}

// ==================== 服务端推送（service.Notifier） ====================

// NotifyMessage 消息落库后推送给会话组内除发送者外的成员
func (r *Router) NotifyMessage(ctx context.Context, msg *dto.MessageItem) {
	if msg == nil || msg.ID <= 0 {
		return
	}
	item := *msg
	if item.ConversationID == "" {
		item.ConversationID = convkey.Key(item.SenderID, item.ReceiverID)
	}
	r.deliverMessage(ctx, &item)
}

// NotifyFriendRequestReceived 申请创建后推送给被申请人
func (r *Router) NotifyFriendRequestReceived(ctx context.Context, item *dto.FriendRequestItem) {
	if item == nil || item.ID <= 0 {
		return
	}
	r.deliverToUser(ctx, EventFriendRequestReceived, item.ID, item.ReceiverID, item)
}

// NotifyFriendRequestAccepted 申请被同意后推送给申请人
func (r *Router) NotifyFriendRequestAccepted(ctx context.Context, item *dto.FriendRequestItem) {
	if item == nil || item.ID <= 0 {
		return
	}
	r.deliverToUser(ctx, EventFriendRequestAccepted, item.ID, item.SenderID, item)
}

// ==================== 帧编解码 ====================

// ParseEnvelope 解析客户端上行帧。
// 若 type 缺失或 JSON 不合法，返回 CodeFrameInvalid。
func (r *Router) ParseEnvelope(raw []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, frameError(consts.CodeFrameInvalid)
	}
	envelope.Type = strings.TrimSpace(envelope.Type)
	if envelope.Type == "" {
		return nil, frameError(consts.CodeFrameInvalid)
	}
	return &envelope, nil
}

// MarshalEnvelope 组装并序列化下行帧。
// 约定：data=nil 时省略 data 字段，避免无意义空对象。
func (r *Router) MarshalEnvelope(msgType string, data any) ([]byte, error) {
	envelope := map[string]any{
		"type": msgType,
	}
	if data != nil {
		envelope["data"] = data
	}
	return json.Marshal(envelope)
}

// SendError 把处理错误转成 error 帧；非 FrameError 统一回内部错误，细节只进日志。
// 发送失败通常表示连接不可写，此时主动关闭连接。
func (r *Router) SendError(ctx context.Context, client *manager.Client, err error) {
	var fe *FrameError
	if !errors.As(err, &fe) {
		logger.Error(ctx, "实时事件处理失败",
			logger.Any("conn_id", client.ID()),
			logger.ErrorField("error", err),
		)
		fe = frameError(consts.CodeInternalError)
	}

	payload, marshalErr := r.MarshalEnvelope(EventError, ErrorData{
		Code:    fe.Code,
		Message: fe.Message,
	})
	if marshalErr != nil {
		logger.Warn(ctx, "错误帧序列化失败",
			logger.Int("code", fe.Code),
			logger.ErrorField("error", marshalErr),
		)
		return
	}
	if !client.Enqueue(payload) {
		client.Close()
	}
}

// ==================== 内部方法 ====================

func (r *Router) deliverMessage(ctx context.Context, msg *dto.MessageItem) {
	if !r.markDelivered(EventReceiveMessage + ":" + msg.ConversationID + ":" + strconv.FormatInt(msg.ID, 10)) {
		metrics.RealtimeDeliveries.WithLabelValues(EventReceiveMessage, metrics.ResultDuplicate).Inc()
		return
	}
	frame, err := r.MarshalEnvelope(EventReceiveMessage, msg)
	if err != nil {
		logger.Warn(ctx, "消息推送序列化失败",
			logger.Int64("message_id", msg.ID),
			logger.ErrorField("error", err),
		)
		return
	}
	sent := r.groups.BroadcastExceptUser(msg.ConversationID, frame, msg.SenderID)
	countDelivery(EventReceiveMessage, sent > 0)
}

func (r *Router) deliverToUser(ctx context.Context, event string, id int64, target string, data any) {
	if !r.markDelivered(event + ":" + strconv.FormatInt(id, 10)) {
		metrics.RealtimeDeliveries.WithLabelValues(event, metrics.ResultDuplicate).Inc()
		return
	}
	frame, err := r.MarshalEnvelope(event, data)
	if err != nil {
		logger.Warn(ctx, "定向推送序列化失败",
			logger.String("event", event),
			logger.ErrorField("error", err),
		)
		return
	}
	countDelivery(event, r.presence.SendToUser(target, frame))
}

// lockUser 锁住用户所在分段，返回解锁函数
func (r *Router) lockUser(userUUID string) func() {
	mu := &r.presenceLocks[xxhash.Sum64String(userUUID)%presenceLockShards]
	mu.Lock()
	return mu.Unlock
}

// markDelivered 记录事件已投递，窗口内重复时返回 false
func (r *Router) markDelivered(key string) bool {
	r.dedupMu.Lock()
	defer r.dedupMu.Unlock()
	if r.delivered.Contains(key) {
		return false
	}
	r.delivered.Add(key, struct{}{})
	return true
}

// mirrorPresence 同步写在线状态镜像，放在连接协程里执行以保证上下线顺序
func (r *Router) mirrorPresence(ctx context.Context, userUUID string, online bool, at time.Time) {
	if r.mirror == nil {
		return
	}
	mirrorCtx, cancel := context.WithTimeout(ctxmeta.Detach(ctx), r.cfg.MirrorTimeout)
	defer cancel()
	if err := r.mirror.UpdatePresence(mirrorCtx, userUUID, online, at); err != nil {
		logger.Warn(ctx, "在线状态落库失败",
			logger.String("user_uuid", userUUID),
			logger.Bool("online", online),
			logger.ErrorField("error", err),
		)
	}
}

func (r *Router) broadcastPresence(ctx context.Context, userUUID string, online bool, at time.Time) {
	event := EventUserOffline
	if online {
		event = EventUserOnline
	}
	frame, err := r.MarshalEnvelope(event, PresenceData{
		UserID:     userUUID,
		Online:     online,
		LastSeenAt: at.UnixMilli(),
	})
	if err != nil {
		logger.Warn(ctx, "在线状态推送序列化失败", logger.ErrorField("error", err))
		return
	}
	sent := r.presence.Broadcast(frame, userUUID)
	countDelivery(event, sent > 0)
}

func (r *Router) publish(ctx context.Context, event mq.ChatEvent) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(ctx, event.WithContext(ctx))
}

// resolveConversation 从 join/leave 事件体中得到会话 key
func (r *Router) resolveConversation(userUUID string, data json.RawMessage) (string, error) {
	var req ConversationData
	if err := decodeData(data, &req); err != nil {
		return "", err
	}
	return conversationKey(userUUID, req.ConversationID, req.FriendID)
}

// conversationKey conversationId 优先，否则由 friendId 推导；只校验 key 格式
func conversationKey(userUUID, conversationID, friendID string) (string, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID != "" {
		if _, _, ok := convkey.Participants(conversationID); !ok {
			return "", frameError(consts.CodeParamError)
		}
		return conversationID, nil
	}
	friendID = strings.TrimSpace(friendID)
	if !convkey.ValidUserID(friendID) || friendID == userUUID {
		return "", frameError(consts.CodeParamError)
	}
	return convkey.Key(userUUID, friendID), nil
}

func requireIdentified(client *manager.Client) (string, error) {
	if client.State() != manager.StateIdentified {
		return "", frameError(consts.CodeNotIdentified)
	}
	return client.UserUUID(), nil
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return frameError(consts.CodeFrameInvalid)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return frameError(consts.CodeFrameInvalid)
	}
	return nil
}

func countDelivery(event string, delivered bool) {
	result := metrics.ResultOffline
	if delivered {
		result = metrics.ResultDelivered
	}
	metrics.RealtimeDeliveries.WithLabelValues(event, result).Inc()
}
