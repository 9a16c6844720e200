package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hivechat/hive/internal/repositories"
	"github.com/hivechat/hive/internal/services"
)

const (
	writeWait      = 10 * time.Second    // 允许写入消息到对端的最大时间
	pongWait       = 60 * time.Second    // 允许读取下一个 pong 消息的最大时间
	pingPeriod     = (pongWait * 9) / 10 // 发送 ping 到对端的周期。必须小于 pongWait
	maxMessageSize = 512                 // 允许来自对端的最大消息大小

	routeTTL = 5 * time.Minute // 路由键 TTL，Pong 续期
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 代表一个 WebSocket 连接客户端
// 连接是只读推送通道：消息的发送走 HTTP 接口，这里只负责事件下行
type Client struct {
	hub      *Hub
	conn     *websocket.Conn        // WebSocket 连接
	send     chan *BroadcastMessage // 缓冲通道，用于发送事件
	userID   uint                   // 用户 ID
	hiveIDs  []uint                 // 用户所属的 Hive ID 列表 (用于订阅)
	presence *services.PresenceService
}

// readPump 消费来自对端的控制帧，维持心跳并在断开时注销
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		// 收到 Pong 说明客户端还活着，刷新在线标记
		// 异步执行，避免阻塞读循环
		if c.presence != nil {
			go c.presence.Touch(context.Background(), c.userID, c.hiveIDs)
		}
		// 续期 Redis 路由键 TTL
		if c.hub != nil && c.hub.redis != nil {
			_ = c.hub.redis.Expire(context.Background(), routeKey(c.userID), routeTTL).Err()
		}
		return nil
	})

	for {
		// 下行单向通道，客户端数据帧直接丢弃，只保留连接存活检测
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket 读取错误: %v", err)
			}
			break
		}
	}
}

// writePump 泵送来自 Hub 的事件到 WebSocket 连接
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			// 客户端收到后根据 hive_id 与事件 kind 做本地状态归并
			json.NewEncoder(w).Encode(msg)

			// 添加队列中的其他事件（如果有）
			n := len(c.send)
			for range n {
				json.NewEncoder(w).Encode(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs 处理 WebSocket 请求
func ServeWs(hub *Hub, hiveRepo *repositories.HiveRepository, presence *services.PresenceService, c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权"})
		return
	}

	// 升级连接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("升级 websocket 失败: %v", err)
		return
	}

	// 获取用户加入的 Hive 列表，决定订阅的房间
	uID := userID.(uint)
	hives, err := hiveRepo.ListByUser(uID)
	if err != nil {
		log.Printf("获取用户 Hive 列表失败: %v", err)
		conn.Close()
		return
	}
	hiveIDs := make([]uint, 0, len(hives))
	for _, h := range hives {
		hiveIDs = append(hiveIDs, h.ID)
	}

	// 一致性哈希选择目标节点
	targetNode := ""
	if hub.hashRing != nil {
		targetNode = hub.hashRing.Get(strconv.Itoa(int(uID)))
	}

	// 未命中当前节点时仍接入本节点，Redis 订阅保证事件最终到达；
	// 记录日志便于观测路由倾斜
	if targetNode != hub.nodeID && targetNode != "" {
		log.Printf("用户 %d 映射到节点 %s, 当前节点 %s", uID, targetNode, hub.nodeID)
	}

	// 写入 Redis 路由并注册到本地 Hub
	if hub.redis != nil {
		if err := hub.redis.Set(c, routeKey(uID), hub.nodeID, routeTTL).Err(); err != nil {
			log.Printf("设置用户路由失败: %v", err)
		}
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan *BroadcastMessage, 256),
		userID:   uID,
		hiveIDs:  hiveIDs,
		presence: presence,
	}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
}
