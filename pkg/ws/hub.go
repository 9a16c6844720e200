package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/pkg/utils"
)

const (
	redisChannelName = "hive:broadcast"
)

// Hub 维护活跃的客户端连接并向 Hive 房间扇出事件
// 两个入口：BroadcastToHive 经 Redis 发布到所有节点（降级发布器用），
// BroadcastLocal 只投递本节点连接（每个节点的 Kafka 消费者用，避免重复广播）
type Hub struct {
	// 注册的客户端
	clients map[*Client]bool

	// 房间对应的客户端集合 HiveID -> Client -> bool
	rooms map[uint]map[*Client]bool

	// 互斥锁，保护 map 的并发读写
	mu sync.RWMutex

	// 注册请求通道
	register chan *Client

	// 注销请求通道
	unregister chan *Client

	// 广播消息通道 (内部使用)
	broadcast chan *BroadcastMessage

	// Redis 客户端，用于分布式广播与路由键
	redis *redis.Client

	// 用户 ID 到客户端的映射，方便查找
	userClients map[uint]*Client

	// 一致性哈希环与当前节点
	hashRing *utils.HashRing
	nodeID   string
}

// BroadcastMessage 广播消息结构，Payload 为事件信封
// Kind 与 UserID 在发布侧从信封提起，经 Redis 转发后仍可驱动房间维护
type BroadcastMessage struct {
	HiveID  uint   `json:"hive_id"`
	Kind    string `json:"kind,omitempty"`
	UserID  uint   `json:"user_id,omitempty"`
	Payload any    `json:"payload"`
}

func newBroadcastMessage(hiveID uint, payload any) *BroadcastMessage {
	msg := &BroadcastMessage{HiveID: hiveID, Payload: payload}
	if env, ok := payload.(events.Envelope); ok {
		msg.Kind = env.Kind
		if env.Member != nil {
			msg.UserID = env.Member.UserID
		}
	}
	return msg
}

func NewHub(redisClient *redis.Client, ring *utils.HashRing, nodeID string) *Hub {
	return &Hub{
		broadcast:   make(chan *BroadcastMessage),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		rooms:       make(map[uint]map[*Client]bool),
		userClients: make(map[uint]*Client),
		redis:       redisClient,
		hashRing:    ring,
		nodeID:      nodeID,
	}
}

func (h *Hub) Run() {
	// 启动 Redis 订阅协程
	if h.redis != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.userClients[client.userID] = client
			// 将客户端加入其所属的 Hive 房间
			for _, hiveID := range client.hiveIDs {
				if _, ok := h.rooms[hiveID]; !ok {
					h.rooms[hiveID] = make(map[*Client]bool)
				}
				h.rooms[hiveID][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.dropClientLocked(client)
			}
			h.mu.Unlock()
			// 删除 Redis 路由键，避免脏路由
			if h.redis != nil {
				key := routeKey(client.userID)
				_ = h.redis.Del(context.Background(), key).Err()
			}

		case msg := <-h.broadcast:
			// 入群在派发前生效：新成员连着的客户端从本条事件起就能收到该房间的推送
			if msg.Kind == events.KindMemberJoined {
				h.mu.Lock()
				h.addToRoomLocked(msg.UserID, msg.HiveID)
				h.mu.Unlock()
			}

			h.mu.RLock()
			// 收集需要关闭的客户端，避免在 RLock 中修改 map
			var closedClients []*Client

			if clients, ok := h.rooms[msg.HiveID]; ok {
				for client := range clients {
					select {
					case client.send <- msg:
					default:
						// 发送缓冲区满，标记为需要关闭
						closedClients = append(closedClients, client)
					}
				}
			}
			h.mu.RUnlock()

			if len(closedClients) > 0 {
				h.mu.Lock()
				for _, client := range closedClients {
					// Double check，防止已经处理过
					if _, ok := h.clients[client]; ok {
						h.dropClientLocked(client)
					}
				}
				h.mu.Unlock()
			}

			// 退群在派发后生效：离开者还能收到自己的 member.left，之后停止订阅
			if msg.Kind == events.KindMemberLeft {
				h.mu.Lock()
				h.evictFromRoomLocked(msg.UserID, msg.HiveID)
				h.mu.Unlock()
			}
		}
	}
}

// addToRoomLocked 把在线用户拉进房间（入群后无需重连）
func (h *Hub) addToRoomLocked(userID, hiveID uint) {
	client, ok := h.userClients[userID]
	if !ok {
		return
	}
	if _, ok := h.rooms[hiveID]; !ok {
		h.rooms[hiveID] = make(map[*Client]bool)
	}
	h.rooms[hiveID][client] = true
}

// evictFromRoomLocked 把退出/被移除的用户踢出房间，停止该 Hive 的推送
func (h *Hub) evictFromRoomLocked(userID, hiveID uint) {
	client, ok := h.userClients[userID]
	if !ok {
		return
	}
	if room, ok := h.rooms[hiveID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, hiveID)
		}
	}
}

// dropClientLocked 在持有写锁的前提下移除客户端及其所有房间订阅
// 扫描全部房间而非连接时的快照，连接期间动态加入的房间也要清理
func (h *Hub) dropClientLocked(client *Client) {
	delete(h.clients, client)
	delete(h.userClients, client.userID)
	close(client.send)
	for hiveID, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, hiveID)
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, redisChannelName)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		var broadcastMsg BroadcastMessage
		if err := json.Unmarshal([]byte(msg.Payload), &broadcastMsg); err == nil {
			// 从 Redis 收到的消息只做本地分发，不再回写 Redis，否则会死循环
			h.broadcast <- &broadcastMsg
		}
	}
}

// BroadcastToHive 发送事件到指定 Hive 的所有订阅者（含其他节点）
func (h *Hub) BroadcastToHive(hiveID uint, payload any) {
	msg := newBroadcastMessage(hiveID, payload)

	if h.redis != nil {
		// 发布到 Redis，让所有实例（包括自己）通过订阅收到消息，
		// 保证多网关部署下各节点的连接都能收到
		data, err := json.Marshal(msg)
		if err == nil {
			h.redis.Publish(context.Background(), redisChannelName, data)
		}
	} else {
		// 没有 Redis 时回退为仅本地广播
		h.broadcast <- msg
	}
}

// BroadcastLocal 只投递到本节点的连接，不经 Redis 转发
// Kafka 消费端用：每个节点以独立消费组订阅全量事件，再转发会成倍重复
func (h *Hub) BroadcastLocal(hiveID uint, payload any) {
	h.broadcast <- newBroadcastMessage(hiveID, payload)
}

func routeKey(userID uint) string {
	return "User:Connect:" + strconv.Itoa(int(userID))
}
