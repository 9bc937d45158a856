package manager

import "sync"

// PresenceRegistry 进程内在线注册表：user_uuid -> 当前连接。
// 每个用户只保留最后一次 identify 的连接，被顶替的旧连接不关闭，只是不再接收定向推送。
// 生命周期跟随服务启停，重启后为空。
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
	// clients 全部存活连接，含未 identify 和已被顶替的，停机时逐个关闭
	clients  map[*Client]struct{}
	shutdown bool
}

// NewPresenceRegistry 创建在线注册表。
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byUser:  make(map[string]*Client),
		clients: make(map[*Client]struct{}),
	}
}

// Attach 登记一条新建立的连接，注册表已关闭时返回 false。
func (r *PresenceRegistry) Attach(client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return false
	}
	r.clients[client] = struct{}{}
	return true
}

// Connect 登记连接，返回被顶替的旧连接（没有则为 nil）。
// 注册表已关闭时返回 ok=false。
func (r *PresenceRegistry) Connect(userUUID string, client *Client) (displaced *Client, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return nil, false
	}
	if old, exists := r.byUser[userUUID]; exists && old != client {
		displaced = old
	}
	r.byUser[userUUID] = client
	r.clients[client] = struct{}{}
	return displaced, true
}

// Disconnect 注销连接。
// 只有当前登记的正是这条连接时才删除，过期连接（已被顶替）的断开不影响新连接的在线状态。
// 返回连接所属用户，以及是否真的移除了在线记录。
func (r *PresenceRegistry) Disconnect(client *Client) (userUUID string, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, client)
	userUUID = client.UserUUID()
	if userUUID == "" {
		return "", false
	}

	current, ok := r.byUser[userUUID]
	if !ok || current != client {
		return userUUID, false
	}
	delete(r.byUser, userUUID)
	return userUUID, true
}

// Lookup 查询用户当前连接。
func (r *PresenceRegistry) Lookup(userUUID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.byUser[userUUID]
	return client, ok
}

// IsOnline 用户是否在线
func (r *PresenceRegistry) IsOnline(userUUID string) bool {
	_, ok := r.Lookup(userUUID)
	return ok
}

// SendToUser 定向推送，目标不在线或队列不可用时返回 false。
func (r *PresenceRegistry) SendToUser(userUUID string, msg []byte) bool {
	client, ok := r.Lookup(userUUID)
	if !ok {
		return false
	}
	return client.Enqueue(msg)
}

// Broadcast 向除 except 之外的所有在线用户推送，返回成功入队数量。
func (r *PresenceRegistry) Broadcast(msg []byte, exceptUser string) int {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.byUser))
	for userUUID, client := range r.byUser {
		if userUUID == exceptUser {
			continue
		}
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.Enqueue(msg) {
			sent++
		}
	}
	return sent
}

// Users 当前在线用户列表（无序）。
func (r *PresenceRegistry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.byUser))
	for userUUID := range r.byUser {
		users = append(users, userUUID)
	}
	return users
}

// Count 在线用户数。
func (r *PresenceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Shutdown 关闭全部连接并阻止后续注册。
func (r *PresenceRegistry) Shutdown() {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return
	}
	r.shutdown = true

	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.byUser = make(map[string]*Client)
	r.clients = make(map[*Client]struct{})
	r.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
