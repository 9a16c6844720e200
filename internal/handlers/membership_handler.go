package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hivechat/hive/internal/services"
)

type MembershipHandler struct {
	Membership *services.MembershipService
}

func NewMembershipHandler(membership *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{Membership: membership}
}

// Join 加入或申请加入
// 免审批 Hive 直接入群；需审批 Hive 创建 pending 申请；被拒绝过的用户拦截
func (h *MembershipHandler) Join(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	result, err := h.Membership.Join(c.Request.Context(), userID, hiveID)
	if err != nil {
		abortWith(c, err)
		return
	}

	if result.Joined {
		c.JSON(http.StatusOK, result)
		return
	}
	// 申请已创建，等待审批
	c.JSON(http.StatusAccepted, result)
}

// Leave 主动退出，创建者不可退出自己的 Hive
func (h *MembershipHandler) Leave(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	if err := h.Membership.Leave(userID, hiveID); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已退出"})
}

// AdminOverview 管理面板：待审批申请 + 成员名单，仅创建者可见
func (h *MembershipHandler) AdminOverview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	view, err := h.Membership.AdminOverview(userID, hiveID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// parseAction 解析审批动作，approve/reject 之外一律 400
func parseAction(c *gin.Context, action string) (approve, ok bool) {
	switch action {
	case "approve":
		return true, true
	case "reject":
		return false, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action 必须是 approve 或 reject"})
		return false, false
	}
}

// ResolveByUser 按申请人审批
func (h *MembershipHandler) ResolveByUser(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}
	approve, ok := parseAction(c, req.Action)
	if !ok {
		return
	}

	if err := h.Membership.ResolveByUser(userID, hiveID, req.UserID, approve); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "审批完成"})
}

// ResolveByRequest 按申请单审批，已处理的申请按业务冲突返回 400
func (h *MembershipHandler) ResolveByRequest(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	requestID, err := strconv.ParseUint(c.Param("request_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的申请 ID"})
		return
	}

	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}
	approve, ok := parseAction(c, req.Action)
	if !ok {
		return
	}

	if err := h.Membership.ResolveByRequest(userID, hiveID, uint(requestID), approve); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "审批完成"})
}

// RemoveMember 创建者移除成员，创建者自身不可被移除
func (h *MembershipHandler) RemoveMember(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	hiveID, ok := parseHiveID(c)
	if !ok {
		return
	}

	var req struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	if err := h.Membership.Remove(userID, hiveID, req.UserID); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已移除"})
}
