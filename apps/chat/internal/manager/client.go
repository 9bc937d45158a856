package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"SocialChat/config"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Conn 连接需要的最小能力集合，*websocket.Conn 直接满足。
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// MessageHandler 定义上行消息回调。
// 参数 raw 为客户端原始载荷（JSON 编码后的字节）。
type MessageHandler func(raw []byte)

// CloseHandler 定义连接关闭回调。
// 用于在 read/write 循环退出后执行清理逻辑（例如注销在线状态、退出会话组）。
type CloseHandler func()

// State 连接状态：Connecting -> Identified -> Disconnected
type State int32

const (
	StateConnecting State = iota
	StateIdentified
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentified:
		return "identified"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

var clientSeq atomic.Uint64

// Client 封装单条 WebSocket 连接。
// 设计要点：
// - send 队列用于削峰，避免业务 goroutine 直接阻塞在网络写；
// - done 用于统一关闭信号，读写循环都监听该信号退出；
// - once 保证 Close 幂等，避免重复 close channel/panic。
type Client struct {
	id           uint64
	conn         Conn
	sessionUser  string // 握手阶段鉴权得到的用户
	writeTimeout time.Duration
	limiter      *rate.Limiter

	mu       sync.RWMutex
	userUUID string // identify 之后才有值
	state    State

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewClient 创建连接包装对象，sessionUser 为握手时鉴权通过的用户 uuid。
func NewClient(conn Conn, sessionUser string, cfg config.RealtimeConfig) *Client {
	queueSize := cfg.SendQueueSize
	if queueSize <= 0 {
		queueSize = config.DefaultRealtimeConfig().SendQueueSize
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = config.DefaultRealtimeConfig().WriteTimeout
	}

	c := &Client{
		id:           clientSeq.Add(1),
		conn:         conn,
		sessionUser:  sessionUser,
		writeTimeout: writeTimeout,
		state:        StateConnecting,
		send:         make(chan []byte, queueSize),
		done:         make(chan struct{}),
	}
	if cfg.InboundRate > 0 {
		burst := cfg.InboundBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.InboundRate), burst)
	}
	return c
}

// ID 进程内唯一的连接编号，用于日志。
func (c *Client) ID() uint64 {
	return c.id
}

func (c *Client) SessionUser() string {
	return c.sessionUser
}

// UserUUID identify 之后绑定的用户，未 identify 时为空串。
func (c *Client) UserUUID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userUUID
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Identify 绑定用户并进入 Identified 状态。
// 已断开的连接不能再 identify；重复 identify 同一用户是幂等的。
func (c *Client) Identify(userUUID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return false
	}
	if c.state == StateIdentified && c.userUUID != userUUID {
		return false
	}
	c.userUUID = userUUID
	c.state = StateIdentified
	return true
}

// Allow 上行限流，未配置速率时总是放行。
func (c *Client) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// Done 返回连接关闭信号通道。
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Enqueue 将待发送消息投递到写队列。
// 返回值语义：
// - true：已成功入队；
// - false：连接已关闭或队列已满（调用方可选择断开连接或丢弃消息）。
func (c *Client) Enqueue(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	cloned := append([]byte(nil), msg...)
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case <-c.done:
		return false
	case c.send <- cloned:
		return true
	default:
		return false
	}
}

// Run 启动读写循环并阻塞等待 readLoop 结束。
// 退出时保证调用 Close 和 onClose，异常断开也一样。
func (c *Client) Run(ctx context.Context, onMessage MessageHandler, onClose CloseHandler) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	go c.writeLoop(ctx)
	c.readLoop(ctx, onMessage)
}

// Close 幂等关闭连接。
// 关闭顺序：
// 1. 状态置为 Disconnected 并关闭 done 信号，通知读写循环退出；
// 2. 关闭底层 websocket 连接释放网络资源。
func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()

		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readLoop 持续读取客户端上行帧并交由 onMessage 处理。
// 退出条件：ctx cancel、连接关闭信号、网络读错误。
func (c *Client) readLoop(ctx context.Context, onMessage MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if onMessage != nil {
			onMessage(raw)
		}
	}
}

// writeLoop 持续从 send 队列取消息写入客户端。
// 每次写操作设置超时，避免慢连接长期占用写协程。
func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}
