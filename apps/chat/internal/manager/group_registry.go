package manager

import "sync"

// GroupRegistry 会话广播组：conversation key -> 成员连接集合。
// 额外维护连接 -> 已加入组的反向索引，断开时一次性退出全部组。
type GroupRegistry struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	joined map[*Client]map[string]struct{}
}

// NewGroupRegistry 创建广播组注册表。
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{
		groups: make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
	}
}

// Join 加入广播组，重复加入是幂等的；返回是否为新加入。
func (g *GroupRegistry) Join(key string, client *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	members, ok := g.groups[key]
	if !ok {
		members = make(map[*Client]struct{})
		g.groups[key] = members
	}
	if _, exists := members[client]; exists {
		return false
	}
	members[client] = struct{}{}

	keys, ok := g.joined[client]
	if !ok {
		keys = make(map[string]struct{})
		g.joined[client] = keys
	}
	keys[key] = struct{}{}
	return true
}

// Leave 退出广播组，返回是否真的退出了。
func (g *GroupRegistry) Leave(key string, client *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.leaveLocked(key, client)
}

// LeaveAll 退出连接加入的全部广播组，返回退出的 key 列表。
func (g *GroupRegistry) LeaveAll(client *Client) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	keys := make([]string, 0, len(g.joined[client]))
	for key := range g.joined[client] {
		keys = append(keys, key)
	}
	for _, key := range keys {
		g.leaveLocked(key, client)
	}
	return keys
}

func (g *GroupRegistry) leaveLocked(key string, client *Client) bool {
	members, ok := g.groups[key]
	if !ok {
		return false
	}
	if _, exists := members[client]; !exists {
		return false
	}
	delete(members, client)
	if len(members) == 0 {
		delete(g.groups, key)
	}
	if keys, ok := g.joined[client]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(g.joined, client)
		}
	}
	return true
}

// IsMember 连接是否在组内
func (g *GroupRegistry) IsMember(key string, client *Client) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.groups[key][client]
	return ok
}

// Members 组内成员快照。
func (g *GroupRegistry) Members(key string) []*Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	members := make([]*Client, 0, len(g.groups[key]))
	for client := range g.groups[key] {
		members = append(members, client)
	}
	return members
}

// Broadcast 向组内除 except 外的成员推送，返回成功入队数量。
// except 为 nil 表示不排除任何连接。
func (g *GroupRegistry) Broadcast(key string, msg []byte, except *Client) int {
	sent := 0
	for _, client := range g.Members(key) {
		if client == except {
			continue
		}
		if client.Enqueue(msg) {
			sent++
		}
	}
	return sent
}

// BroadcastExceptUser 向组内不属于 exceptUser 的成员推送。
// 服务端主动推送时没有发起连接，按用户排除发送者自己的所有连接。
func (g *GroupRegistry) BroadcastExceptUser(key string, msg []byte, exceptUser string) int {
	sent := 0
	for _, client := range g.Members(key) {
		if exceptUser != "" && client.UserUUID() == exceptUser {
			continue
		}
		if client.Enqueue(msg) {
			sent++
		}
	}
	return sent
}

// Count 当前非空广播组数量。
func (g *GroupRegistry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.groups)
}
