package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivechat/hive/internal/services"
)

// statusOf 把领域错误翻译成 HTTP 状态码
// 404: 资源不存在；403: 权限/资格不足；400: 入参非法与业务冲突
// 业务冲突（已是成员、申请已处理等）是规则冲突而非传输层竞争，统一 400
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrHiveNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrRequestNotFound):
		return http.StatusNotFound

	case errors.Is(err, services.ErrNotMember),
		errors.Is(err, services.ErrNotCreator),
		errors.Is(err, services.ErrRequestRejected),
		errors.Is(err, services.ErrTokenGateDenied),
		errors.Is(err, services.ErrCreatorCannotLeave),
		errors.Is(err, services.ErrCannotRemoveCreator):
		return http.StatusForbidden

	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrRequestPending),
		errors.Is(err, services.ErrRequestProcessed),
		errors.Is(err, services.ErrRequestHiveMismatch),
		errors.Is(err, services.ErrAlreadyAnnounced),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrInvalidEmoji),
		errors.Is(err, services.ErrInvalidHiveName),
		errors.Is(err, services.ErrInvalidContractAddress),
		errors.Is(err, services.ErrMessageNotInHive):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// abortWith 统一的错误出口
func abortWith(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}
