package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hivechat/hive/internal/services"
	"github.com/hivechat/hive/pkg/middlewares"
)

type HiveHandler struct {
	HiveService     *services.HiveService
	SummaryService  *services.SummaryService
	PresenceService *services.PresenceService
}

func NewHiveHandler(
	hiveService *services.HiveService,
	summaryService *services.SummaryService,
	presenceService *services.PresenceService,
) *HiveHandler {
	return &HiveHandler{
		HiveService:     hiveService,
		SummaryService:  summaryService,
		PresenceService: presenceService,
	}
}

// parseHiveID 解析 URL 参数中的 hive_id
func parseHiveID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("hive_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 Hive ID"})
		return 0, false
	}
	return uint(id), true
}

// requireUser 从 Context 取当前登录用户
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未授权访问"})
		return 0, false
	}
	return userID, true
}

// ListMine 当前用户已加入的 Hive，按最近活跃排序
func (h *HiveHandler) ListMine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	hives, err := h.HiveService.ListMine(userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hives": hives})
}

// Browse 可加入的 Hive（排除已加入的）
func (h *HiveHandler) Browse(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	hives, err := h.HiveService.Browse(userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hives": hives})
}

// Create 创建 Hive，创建者自动入群
func (h *HiveHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req services.CreateHiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	hive, err := h.HiveService.CreateHive(userID, &req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, hive)
}

// Detail 详情页：成员看到完整名单，非成员只看到概要与加入入口
func (h *HiveHandler) Detail(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	detail, err := h.HiveService.Detail(userID, hiveID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update 仅创建者可改
func (h *HiveHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	var req services.UpdateHiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	if err := h.HiveService.Update(userID, hiveID, &req); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "更新成功"})
}

// Delete 仅创建者可删，连带清理消息/成员/申请/公告/回应
func (h *HiveHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	if err := h.HiveService.Delete(userID, hiveID); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// Summary 最近聊天内容摘要，window 参数形如 "24h"
func (h *HiveHandler) Summary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 window 参数"})
			return
		}
		window = parsed
	}

	result, err := h.SummaryService.Summarize(c.Request.Context(), userID, hiveID, window)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Heartbeat 在线心跳：刷新自己的在线标记并返回当前在线人数
func (h *HiveHandler) Heartbeat(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	count, err := h.PresenceService.Heartbeat(c.Request.Context(), userID, hiveID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": count})
}

// OnlineCount 查询在线人数（仅展示用途）
func (h *HiveHandler) OnlineCount(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	count, err := h.PresenceService.OnlineCount(c.Request.Context(), hiveID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": count})
}
