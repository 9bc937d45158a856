package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/apps/chat/internal/handler"
	"SocialChat/apps/chat/internal/manager"
	"SocialChat/apps/chat/internal/repository"
	"SocialChat/apps/chat/internal/service"
	"SocialChat/apps/chat/internal/svc"
	"SocialChat/config"
	"SocialChat/consts"
	"SocialChat/model"
	"SocialChat/pkg/convkey"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var routerTestOnce sync.Once

func initRouterTest() {
	routerTestOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		gin.SetMode(gin.TestMode)
		util.InitJWT(config.JWTConfig{Secret: "router-test-secret", Issuer: "test", TTL: time.Hour})
	})
}

type testApp struct {
	server *httptest.Server
	db     *gorm.DB
	router *svc.Router
}

// newTestApp 用真实仓储（内存 SQLite）+ 真实服务 + 真实路由启动一个 HTTP 服务
func newTestApp(t *testing.T, users ...string) *testApp {
	t.Helper()
	initRouterTest()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.AutoMigrate(db))
	for _, id := range users {
		require.NoError(t, db.Create(&model.UserInfo{Uuid: id, Nickname: id}).Error)
	}

	userRepo := repository.NewUserRepository(db, nil)
	friendRepo := repository.NewFriendRepository(db)
	requestRepo := repository.NewFriendRequestRepository(db, nil)
	messageRepo := repository.NewMessageRepository(db)

	realtime := svc.NewRouter(manager.NewPresenceRegistry(), manager.NewGroupRegistry(), userRepo, nil, config.DefaultRealtimeConfig())
	relationSvc := service.NewRelationService(userRepo, friendRepo, requestRepo, realtime, nil)
	messageSvc := service.NewMessageService(userRepo, friendRepo, messageRepo, realtime, nil)
	conversationSvc := service.NewConversationService(userRepo, friendRepo, messageRepo)

	engine := InitRouter(config.DefaultServerConfig(), nil, nil, Handlers{
		Friend:  handler.NewFriendHandler(relationSvc),
		Message: handler.NewMessageHandler(messageSvc, conversationSvc),
		WS:      handler.NewWSHandler(realtime),
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		realtime.Shutdown()
		srv.Close()
		_ = sqlDB.Close()
	})
	return &testApp{server: srv, db: db, router: realtime}
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := util.GenerateToken(user)
	require.NoError(t, err)
	return tok
}

type apiResponse struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func (a *testApp) call(t *testing.T, user, method, path string, body any) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	require.Equal(t, consts.CodeSuccess, resp.Code)
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

type wsPeer struct {
	user string
	conn *websocket.Conn
}

func (a *testApp) dial(t *testing.T, user string) *wsPeer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/ws?token=" + token(t, user)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return &wsPeer{user: user, conn: conn}
}

func (p *wsPeer) send(t *testing.T, eventType string, data any) {
	t.Helper()
	frame := map[string]any{"type": eventType}
	if data != nil {
		frame["data"] = data
	}
	require.NoError(t, p.conn.WriteJSON(frame))
}

func (p *wsPeer) next(t *testing.T) svc.Envelope {
	t.Helper()
	require.NoError(t, p.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env svc.Envelope
	require.NoError(t, p.conn.ReadJSON(&env))
	return env
}

// sync 心跳屏障：同一连接上的事件按序处理，收到 ack 说明之前发的事件都已处理完，且期间没有别的下行帧
func (p *wsPeer) sync(t *testing.T) {
	t.Helper()
	p.send(t, svc.EventHeartbeat, nil)
	assert.Equal(t, svc.EventHeartbeatAck, p.next(t).Type)
}

func TestHealthAndAuth(t *testing.T) {
	app := newTestApp(t, "alice")

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(app.server.URL + "/api/v1/friends")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(app.server.URL + "/ws")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(app.server.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRESTValidation(t *testing.T) {
	app := newTestApp(t, "alice", "bob")

	assert.Equal(t, consts.CodeParamError, app.call(t, "alice", http.MethodPost, "/api/v1/friends/request", map[string]string{}).Code)
	assert.Equal(t, consts.CodeCannotAddSelf, app.call(t, "alice", http.MethodPost, "/api/v1/friends/request", dto.SendFriendRequestRequest{ReceiverID: "alice"}).Code)
	assert.Equal(t, consts.CodeParamError, app.call(t, "alice", http.MethodPost, "/api/v1/friends/request/abc/accept", nil).Code)
	assert.Equal(t, consts.CodeFriendRequestNotFound, app.call(t, "alice", http.MethodPost, "/api/v1/friends/request/99/accept", nil).Code)
	assert.Equal(t, consts.CodeNotFriend, app.call(t, "alice", http.MethodPost, "/api/v1/messages/send", dto.SendMessageRequest{ReceiverID: "bob", Content: "hi"}).Code)
	assert.Equal(t, consts.CodeParamError, app.call(t, "alice", http.MethodGet, "/api/v1/messages/conversation/bob?limit=500", nil).Code)
}

// 实时通道 + REST 的完整链路：
// 申请实时送达被申请人 -> 同意实时送达申请人 -> 发消息只送达对方一次 -> 打开会话后未读清零
func TestRealtimeEndToEnd(t *testing.T) {
	app := newTestApp(t, "alice", "bob")

	alice := app.dial(t, "alice")
	alice.send(t, svc.EventUserConnected, svc.IdentifyData{UserID: "alice"})
	alice.sync(t)

	bob := app.dial(t, "bob")
	t.Run("identify_must_match_token", func(t *testing.T) {
		bob.send(t, svc.EventUserConnected, svc.IdentifyData{UserID: "alice"})
		env := bob.next(t)
		require.Equal(t, svc.EventError, env.Type)
		var data svc.ErrorData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, consts.CodeIdentityMismatch, data.Code)
	})
	bob.send(t, svc.EventUserConnected, svc.IdentifyData{UserID: "bob"})
	bob.sync(t)
	require.Equal(t, svc.EventUserOnline, alice.next(t).Type)

	// 好友申请
	created := decodeData[dto.FriendRequestItem](t, app.call(t, "alice", http.MethodPost, "/api/v1/friends/request",
		dto.SendFriendRequestRequest{ReceiverID: "bob", Message: "join me"}))
	env := bob.next(t)
	require.Equal(t, svc.EventFriendRequestReceived, env.Type)
	var pushed dto.FriendRequestItem
	require.NoError(t, json.Unmarshal(env.Data, &pushed))
	assert.Equal(t, created.ID, pushed.ID)
	assert.Equal(t, "join me", pushed.Message)

	received := decodeData[dto.FriendRequestListResponse](t, app.call(t, "bob", http.MethodGet, "/api/v1/friends/requests/received", nil))
	require.Len(t, received.Items, 1)
	assert.Equal(t, "alice", received.Items[0].SenderID)

	// 同意
	acceptPath := "/api/v1/friends/request/" + jsonID(created.ID) + "/accept"
	accepted := decodeData[dto.FriendRequestItem](t, app.call(t, "bob", http.MethodPost, acceptPath, nil))
	assert.Equal(t, "accepted", accepted.Status)
	require.Equal(t, svc.EventFriendRequestAccepted, alice.next(t).Type)
	assert.Equal(t, consts.CodeFriendRequestProcessed, app.call(t, "bob", http.MethodPost, acceptPath, nil).Code)

	friends := decodeData[dto.FriendListResponse](t, app.call(t, "alice", http.MethodGet, "/api/v1/friends", nil))
	require.Len(t, friends.Items, 1)
	assert.Equal(t, "bob", friends.Items[0].UUID)
	assert.True(t, friends.Items[0].IsOnline)

	// 双方加入会话组
	key := convkey.Key("alice", "bob")
	alice.send(t, svc.EventJoinConversation, svc.ConversationData{FriendID: "bob"})
	alice.sync(t)
	bob.send(t, svc.EventJoinConversation, svc.ConversationData{ConversationID: key})
	bob.sync(t)

	// 发消息
	sent := decodeData[dto.MessageItem](t, app.call(t, "alice", http.MethodPost, "/api/v1/messages/send",
		dto.SendMessageRequest{ReceiverID: "bob", Content: "hi"}))
	env = bob.next(t)
	require.Equal(t, svc.EventReceiveMessage, env.Type)
	var got dto.MessageItem
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, key, got.ConversationID)

	// 发送方客户端再转发一次：对方不会重复收到，发送方自己也收不到
	alice.send(t, svc.EventSendMessage, sent)
	alice.sync(t)
	bob.sync(t)

	// 输入中提示
	alice.send(t, svc.EventTyping, svc.TypingData{ConversationID: key, IsTyping: true})
	alice.sync(t)
	env = bob.next(t)
	require.Equal(t, svc.EventUserTyping, env.Type)

	// 未读 -> 打开会话 -> 已读
	unread := decodeData[dto.UnreadCountResponse](t, app.call(t, "bob", http.MethodGet, "/api/v1/messages/conversation/alice/unread", nil))
	assert.Equal(t, int64(1), unread.Count)

	conversations := decodeData[dto.ConversationListResponse](t, app.call(t, "bob", http.MethodGet, "/api/v1/messages/conversations", nil))
	require.Len(t, conversations.Items, 1)
	assert.Equal(t, int64(1), conversations.Items[0].UnreadCount)
	require.NotNil(t, conversations.Items[0].LastMessage)
	assert.Equal(t, sent.ID, conversations.Items[0].LastMessage.ID)

	page := decodeData[dto.ConversationMessagesResponse](t, app.call(t, "bob", http.MethodGet, "/api/v1/messages/conversation/alice?page=1&limit=50", nil))
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].IsRead)
	assert.Equal(t, int64(1), page.MarkedRead)

	total := decodeData[dto.UnreadCountResponse](t, app.call(t, "bob", http.MethodGet, "/api/v1/messages/unread", nil))
	assert.Equal(t, int64(0), total.Count)

	// 断开后对方收到离线通知
	require.NoError(t, bob.conn.Close())
	env = alice.next(t)
	require.Equal(t, svc.EventUserOffline, env.Type)
	assert.Eventually(t, func() bool { return !app.router.Presence().IsOnline("bob") }, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeFrameErrors(t *testing.T) {
	app := newTestApp(t, "alice")
	alice := app.dial(t, "alice")

	require.NoError(t, alice.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	env := alice.next(t)
	require.Equal(t, svc.EventError, env.Type)
	var data svc.ErrorData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, consts.CodeFrameInvalid, data.Code)

	alice.send(t, "unknown_event", nil)
	env = alice.next(t)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, consts.CodeEventUnsupported, data.Code)

	alice.send(t, svc.EventJoinConversation, svc.ConversationData{FriendID: "bob"})
	env = alice.next(t)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, consts.CodeNotIdentified, data.Code)

	// 出错后连接仍然可用
	alice.sync(t)
}

func jsonID(id int64) string {
	raw, _ := json.Marshal(struct {
		ID int64 `json:"id,string"`
	}{ID: id})
	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &out)
	return out.ID
}
