package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hivechat/hive/config"
)

// Notification 一次推送任务
type Notification struct {
	RecipientID uint              `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Notifier 推送出口
// 所有实现都是尽力而为：失败由调用方记日志吞掉，绝不影响触发它的请求
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// HTTPSender 调用推送网关的实现
type HTTPSender struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSender(cfg *config.PushConfig) *HTTPSender {
	return &HTTPSender{
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (s *HTTPSender) Notify(ctx context.Context, n Notification) error {
	if s.endpoint == "" {
		return nil // 未配置网关时静默跳过
	}

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("推送失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("推送网关返回 %d", resp.StatusCode)
	}
	return nil
}
