package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hivechat/hive/internal/services"
)

type MessageHandler struct {
	MessageService      *services.MessageService
	ReactionService     *services.ReactionService
	AnnouncementService *services.AnnouncementService
}

func NewMessageHandler(
	messageService *services.MessageService,
	reactionService *services.ReactionService,
	announcementService *services.AnnouncementService,
) *MessageHandler {
	return &MessageHandler{
		MessageService:      messageService,
		ReactionService:     reactionService,
		AnnouncementService: announcementService,
	}
}

// parseMessageID 解析 URL 参数中的 message_id（snowflake，int64）
func parseMessageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的消息 ID"})
		return 0, false
	}
	return id, true
}

// Send 发送消息
// client_tag 是客户端乐观插入时生成的占位标识，原样回显，
// 客户端靠它把占位消息换成带正式 ID 的消息
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	var req struct {
		Content   string `json:"content" binding:"required"`
		ClientTag string `json:"client_tag"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	msg, err := h.MessageService.SendMessage(userID, hiveID, &services.SendMessageRequest{Content: req.Content})
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         msg.ID,
		"hive_id":    msg.HiveID,
		"sender_id":  msg.SenderID,
		"content":    msg.Content,
		"created_at": msg.CreatedAt.Format(time.RFC3339Nano),
		"client_tag": req.ClientTag,
	})
}

// List 最近 100 条消息，按时间升序
func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	msgs, err := h.MessageService.GetMessages(userID, hiveID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ToggleReaction 翻转回应：没有则加上，已有则取消
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	action, err := h.ReactionService.Toggle(userID, messageID, req.Emoji)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action})
}

// Reactions 按 emoji 聚合的回应视图，带"本人是否已回应"标记
func (h *MessageHandler) Reactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	groups, err := h.ReactionService.Aggregate(userID, messageID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": groups})
}

// Promote 把一条消息设为公告，仅创建者可操作
func (h *MessageHandler) Promote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	var req struct {
		MessageID int64 `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	ann, err := h.AnnouncementService.Promote(c.Request.Context(), userID, hiveID, req.MessageID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, ann)
}

// Announcements 公告列表，成员可见
func (h *MessageHandler) Announcements(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	anns, err := h.AnnouncementService.List(userID, hiveID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": anns})
}
