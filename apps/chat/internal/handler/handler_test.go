package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"SocialChat/apps/chat/internal/dto"
	"SocialChat/consts"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var handlerTestOnce sync.Once

func initHandlerTest() {
	handlerTestOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		gin.SetMode(gin.TestMode)
	})
}

func bizErr(c codes.Code, code int) error {
	return status.Error(c, strconv.Itoa(code))
}

type fakeRelationService struct {
	sendRequestFn        func(ctx context.Context, senderUUID string, req *dto.SendFriendRequestRequest) (*dto.FriendRequestItem, error)
	acceptFn             func(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error)
	rejectFn             func(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error)
	listReceivedFn       func(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error)
	listSentFn           func(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error)
	unreadRequestCountFn func(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error)
	removeFriendFn       func(ctx context.Context, userUUID, friendUUID string) error
	listFriendsFn        func(ctx context.Context, userUUID string) (*dto.FriendListResponse, error)
}

func (f *fakeRelationService) SendRequest(ctx context.Context, senderUUID string, req *dto.SendFriendRequestRequest) (*dto.FriendRequestItem, error) {
	if f.sendRequestFn == nil {
		return nil, errors.New("sendRequestFn not set")
	}
	return f.sendRequestFn(ctx, senderUUID, req)
}

func (f *fakeRelationService) Accept(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error) {
	if f.acceptFn == nil {
		return nil, errors.New("acceptFn not set")
	}
	return f.acceptFn(ctx, requestID, actingUUID)
}

func (f *fakeRelationService) Reject(ctx context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error) {
	if f.rejectFn == nil {
		return nil, errors.New("rejectFn not set")
	}
	return f.rejectFn(ctx, requestID, actingUUID)
}

func (f *fakeRelationService) ListReceived(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error) {
	if f.listReceivedFn == nil {
		return nil, errors.New("listReceivedFn not set")
	}
	return f.listReceivedFn(ctx, userUUID)
}

func (f *fakeRelationService) ListSent(ctx context.Context, userUUID string) (*dto.FriendRequestListResponse, error) {
	if f.listSentFn == nil {
		return nil, errors.New("listSentFn not set")
	}
	return f.listSentFn(ctx, userUUID)
}

func (f *fakeRelationService) UnreadRequestCount(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error) {
	if f.unreadRequestCountFn == nil {
		return nil, errors.New("unreadRequestCountFn not set")
	}
	return f.unreadRequestCountFn(ctx, userUUID)
}

func (f *fakeRelationService) RemoveFriend(ctx context.Context, userUUID, friendUUID string) error {
	if f.removeFriendFn == nil {
		return errors.New("removeFriendFn not set")
	}
	return f.removeFriendFn(ctx, userUUID, friendUUID)
}

func (f *fakeRelationService) ListFriends(ctx context.Context, userUUID string) (*dto.FriendListResponse, error) {
	if f.listFriendsFn == nil {
		return nil, errors.New("listFriendsFn not set")
	}
	return f.listFriendsFn(ctx, userUUID)
}

type fakeMessageService struct {
	sendFn               func(ctx context.Context, senderUUID string, req *dto.SendMessageRequest) (*dto.MessageItem, error)
	loadConversationFn   func(ctx context.Context, userUUID, friendUUID string, page, limit int) (*dto.ConversationMessagesResponse, error)
	conversationUnreadFn func(ctx context.Context, userUUID, friendUUID string) (*dto.UnreadCountResponse, error)
	unreadCountFn        func(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error)
}

func (f *fakeMessageService) Send(ctx context.Context, senderUUID string, req *dto.SendMessageRequest) (*dto.MessageItem, error) {
	if f.sendFn == nil {
		return nil, errors.New("sendFn not set")
	}
	return f.sendFn(ctx, senderUUID, req)
}

func (f *fakeMessageService) LoadConversation(ctx context.Context, userUUID, friendUUID string, page, limit int) (*dto.ConversationMessagesResponse, error) {
	if f.loadConversationFn == nil {
		return nil, errors.New("loadConversationFn not set")
	}
	return f.loadConversationFn(ctx, userUUID, friendUUID, page, limit)
}

func (f *fakeMessageService) ConversationUnread(ctx context.Context, userUUID, friendUUID string) (*dto.UnreadCountResponse, error) {
	if f.conversationUnreadFn == nil {
		return nil, errors.New("conversationUnreadFn not set")
	}
	return f.conversationUnreadFn(ctx, userUUID, friendUUID)
}

func (f *fakeMessageService) UnreadCount(ctx context.Context, userUUID string) (*dto.UnreadCountResponse, error) {
	if f.unreadCountFn == nil {
		return nil, errors.New("unreadCountFn not set")
	}
	return f.unreadCountFn(ctx, userUUID)
}

type fakeConversationService struct {
	listConversationsFn func(ctx context.Context, userUUID string) (*dto.ConversationListResponse, error)
}

func (f *fakeConversationService) ListConversations(ctx context.Context, userUUID string) (*dto.ConversationListResponse, error) {
	if f.listConversationsFn == nil {
		return nil, errors.New("listConversationsFn not set")
	}
	return f.listConversationsFn(ctx, userUUID)
}

type testResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// serve 构造一个只挂单个路由的 engine，user 非空时模拟 JWT 中间件已注入用户
func serve(t *testing.T, method, pattern, target, user string, body any, h gin.HandlerFunc) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	initHandlerTest()

	r := gin.New()
	r.Handle(method, pattern, func(c *gin.Context) {
		if user != "" {
			c.Set(ctxmeta.GinKeyUserUUID, user)
		}
		c.Next()
	}, h)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestExtractErrorCode(t *testing.T) {
	assert.Equal(t, consts.CodeSuccess, extractErrorCode(nil))
	assert.Equal(t, consts.CodeNotFriend, extractErrorCode(bizErr(codes.FailedPrecondition, consts.CodeNotFriend)))
	assert.Equal(t, consts.CodeInternalError, extractErrorCode(errors.New("boom")))
	assert.Equal(t, consts.CodeInternalError, extractErrorCode(status.Error(codes.Internal, "not a number")))
}

func TestFriendHandler_SendRequest(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeRelationService{
			sendRequestFn: func(_ context.Context, senderUUID string, req *dto.SendFriendRequestRequest) (*dto.FriendRequestItem, error) {
				assert.Equal(t, "alice", senderUUID)
				assert.Equal(t, "bob", req.ReceiverID)
				return &dto.FriendRequestItem{ID: 7, SenderID: senderUUID, ReceiverID: req.ReceiverID, Status: "pending"}, nil
			},
		}
		h := NewFriendHandler(svc)
		w, resp := serve(t, http.MethodPost, "/friends/request", "/friends/request", "alice",
			dto.SendFriendRequestRequest{ReceiverID: "bob"}, h.SendRequest)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, consts.CodeSuccess, resp.Code)
		var item dto.FriendRequestItem
		require.NoError(t, json.Unmarshal(resp.Data, &item))
		assert.Equal(t, int64(7), item.ID)
	})

	t.Run("param_error", func(t *testing.T) {
		h := NewFriendHandler(&fakeRelationService{})
		_, resp := serve(t, http.MethodPost, "/friends/request", "/friends/request", "alice",
			map[string]string{}, h.SendRequest)
		assert.Equal(t, consts.CodeParamError, resp.Code)
	})

	t.Run("business_error_passthrough", func(t *testing.T) {
		svc := &fakeRelationService{
			sendRequestFn: func(context.Context, string, *dto.SendFriendRequestRequest) (*dto.FriendRequestItem, error) {
				return nil, bizErr(codes.AlreadyExists, consts.CodeFriendRequestSent)
			},
		}
		h := NewFriendHandler(svc)
		_, resp := serve(t, http.MethodPost, "/friends/request", "/friends/request", "alice",
			dto.SendFriendRequestRequest{ReceiverID: "bob"}, h.SendRequest)
		assert.Equal(t, consts.CodeFriendRequestSent, resp.Code)
	})

	t.Run("internal_error_masked", func(t *testing.T) {
		svc := &fakeRelationService{
			sendRequestFn: func(context.Context, string, *dto.SendFriendRequestRequest) (*dto.FriendRequestItem, error) {
				return nil, errors.New("db down")
			},
		}
		h := NewFriendHandler(svc)
		_, resp := serve(t, http.MethodPost, "/friends/request", "/friends/request", "alice",
			dto.SendFriendRequestRequest{ReceiverID: "bob"}, h.SendRequest)
		assert.Equal(t, consts.CodeInternalError, resp.Code)
		assert.NotContains(t, resp.Message, "db down")
	})

	t.Run("missing_user", func(t *testing.T) {
		h := NewFriendHandler(&fakeRelationService{})
		w, resp := serve(t, http.MethodPost, "/friends/request", "/friends/request", "",
			dto.SendFriendRequestRequest{ReceiverID: "bob"}, h.SendRequest)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, consts.CodeUnauthorized, resp.Code)
	})
}

func TestFriendHandler_AcceptReject(t *testing.T) {
	var gotID int64
	svc := &fakeRelationService{
		acceptFn: func(_ context.Context, requestID int64, actingUUID string) (*dto.FriendRequestItem, error) {
			gotID = requestID
			assert.Equal(t, "bob", actingUUID)
			return &dto.FriendRequestItem{ID: requestID, Status: "accepted"}, nil
		},
		rejectFn: func(context.Context, int64, string) (*dto.FriendRequestItem, error) {
			return nil, bizErr(codes.FailedPrecondition, consts.CodeFriendRequestProcessed)
		},
	}
	h := NewFriendHandler(svc)

	tests := []struct {
		name     string
		pattern  string
		target   string
		handler  gin.HandlerFunc
		wantCode int
	}{
		{name: "accept_ok", pattern: "/request/:requestId/accept", target: "/request/42/accept", handler: h.Accept, wantCode: consts.CodeSuccess},
		{name: "accept_bad_id", pattern: "/request/:requestId/accept", target: "/request/abc/accept", handler: h.Accept, wantCode: consts.CodeParamError},
		{name: "accept_negative_id", pattern: "/request/:requestId/accept", target: "/request/-1/accept", handler: h.Accept, wantCode: consts.CodeParamError},
		{name: "reject_processed", pattern: "/request/:requestId/reject", target: "/request/42/reject", handler: h.Reject, wantCode: consts.CodeFriendRequestProcessed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := serve(t, http.MethodPost, tt.pattern, tt.target, "bob", nil, tt.handler)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
	assert.Equal(t, int64(42), gotID)
}

func TestFriendHandler_RemoveFriend(t *testing.T) {
	var removed string
	h := NewFriendHandler(&fakeRelationService{
		removeFriendFn: func(_ context.Context, userUUID, friendUUID string) error {
			assert.Equal(t, "alice", userUUID)
			removed = friendUUID
			return nil
		},
	})
	_, resp := serve(t, http.MethodDelete, "/friends/:friendId", "/friends/bob", "alice", nil, h.RemoveFriend)
	assert.Equal(t, consts.CodeSuccess, resp.Code)
	assert.Equal(t, "bob", removed)
}

func TestMessageHandler_LoadConversation(t *testing.T) {
	svc := &fakeMessageService{
		loadConversationFn: func(_ context.Context, userUUID, friendUUID string, page, limit int) (*dto.ConversationMessagesResponse, error) {
			assert.Equal(t, "bob", userUUID)
			assert.Equal(t, "alice", friendUUID)
			return &dto.ConversationMessagesResponse{ConversationID: "alice_bob", Page: page, Limit: limit}, nil
		},
	}
	h := NewMessageHandler(svc, &fakeConversationService{})

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantPage  int
		wantLimit int
	}{
		{name: "defaults_passed_through", target: "/conversation/alice", wantCode: consts.CodeSuccess},
		{name: "explicit_page", target: "/conversation/alice?page=3&limit=50", wantCode: consts.CodeSuccess, wantPage: 3, wantLimit: 50},
		{name: "limit_too_large", target: "/conversation/alice?limit=101", wantCode: consts.CodeParamError},
		{name: "page_not_number", target: "/conversation/alice?page=x", wantCode: consts.CodeParamError},
		{name: "page_too_large", target: "/conversation/alice?page=10001", wantCode: consts.CodeParamError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := serve(t, http.MethodGet, "/conversation/:friendId", tt.target, "bob", nil, h.LoadConversation)
			require.Equal(t, tt.wantCode, resp.Code)
			if tt.wantCode != consts.CodeSuccess {
				return
			}
			var page dto.ConversationMessagesResponse
			require.NoError(t, json.Unmarshal(resp.Data, &page))
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
		})
	}
}

func TestMessageHandler_SendAndCounts(t *testing.T) {
	svc := &fakeMessageService{
		sendFn: func(context.Context, string, *dto.SendMessageRequest) (*dto.MessageItem, error) {
			return nil, bizErr(codes.FailedPrecondition, consts.CodeNotFriend)
		},
		unreadCountFn: func(context.Context, string) (*dto.UnreadCountResponse, error) {
			return &dto.UnreadCountResponse{Count: 3}, nil
		},
	}
	conversations := &fakeConversationService{
		listConversationsFn: func(context.Context, string) (*dto.ConversationListResponse, error) {
			return nil, status.Error(codes.Internal, strconv.Itoa(consts.CodeInternalError))
		},
	}
	h := NewMessageHandler(svc, conversations)

	_, resp := serve(t, http.MethodPost, "/send", "/send", "alice",
		dto.SendMessageRequest{ReceiverID: "bob", Content: "hi"}, h.Send)
	assert.Equal(t, consts.CodeNotFriend, resp.Code)

	_, resp = serve(t, http.MethodGet, "/unread", "/unread", "alice", nil, h.UnreadCount)
	require.Equal(t, consts.CodeSuccess, resp.Code)
	var count dto.UnreadCountResponse
	require.NoError(t, json.Unmarshal(resp.Data, &count))
	assert.Equal(t, int64(3), count.Count)

	_, resp = serve(t, http.MethodGet, "/conversations", "/conversations", "alice", nil, h.ListConversations)
	assert.Equal(t, consts.CodeInternalError, resp.Code)
}
