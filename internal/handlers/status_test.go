package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hivechat/hive/internal/services"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrHiveNotFound, http.StatusNotFound},
		{services.ErrMessageNotFound, http.StatusNotFound},
		{services.ErrRequestNotFound, http.StatusNotFound},

		{services.ErrNotMember, http.StatusForbidden},
		{services.ErrNotCreator, http.StatusForbidden},
		{services.ErrRequestRejected, http.StatusForbidden},
		{services.ErrTokenGateDenied, http.StatusForbidden},
		{services.ErrCreatorCannotLeave, http.StatusForbidden},
		{services.ErrCannotRemoveCreator, http.StatusForbidden},

		// 业务冲突与入参非法同为 400，不用 409
		{services.ErrAlreadyMember, http.StatusBadRequest},
		{services.ErrRequestPending, http.StatusBadRequest},
		{services.ErrRequestProcessed, http.StatusBadRequest},
		{services.ErrRequestHiveMismatch, http.StatusBadRequest},
		{services.ErrAlreadyAnnounced, http.StatusBadRequest},

		{services.ErrEmptyMessage, http.StatusBadRequest},
		{services.ErrMessageTooLong, http.StatusBadRequest},
		{services.ErrInvalidEmoji, http.StatusBadRequest},
		{services.ErrInvalidHiveName, http.StatusBadRequest},
		{services.ErrInvalidContractAddress, http.StatusBadRequest},
		{services.ErrMessageNotInHive, http.StatusBadRequest},

		{errors.New("database is on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

// 包装过的领域错误仍按底层错误映射
func TestStatusOf_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("join failed: %w", services.ErrTokenGateDenied)
	assert.Equal(t, http.StatusForbidden, statusOf(wrapped))
}
